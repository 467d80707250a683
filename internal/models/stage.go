package models

// StageName — один из восьми канонических этапов закупки.
type StageName string

const (
	StagePurchaseRequest     StageName = "Purchase Request"
	StageRFQ1                StageName = "RFQ 1"
	StageRFQ2                StageName = "RFQ 2"
	StageRFQ3                StageName = "RFQ 3"
	StageAbstractOfQuotation StageName = "Abstract of Quotation"
	StagePurchaseOrder       StageName = "Purchase Order"
	StageNoticeOfAward       StageName = "Notice of Award"
	StageNoticeToProceed     StageName = "Notice to Proceed"
)

// порядок этапов задаётся только здесь
var stageOrder = [...]StageName{
	StagePurchaseRequest,
	StageRFQ1,
	StageRFQ2,
	StageRFQ3,
	StageAbstractOfQuotation,
	StagePurchaseOrder,
	StageNoticeOfAward,
	StageNoticeToProceed,
}

// StageCount is the number of canonical stages every project carries.
const StageCount = len(stageOrder)

// Stages returns the canonical stages in order. The slice is a copy.
func Stages() []StageName {
	out := make([]StageName, StageCount)
	copy(out, stageOrder[:])
	return out
}

// IndexOf returns the position of s in the canonical order, or -1.
func IndexOf(s StageName) int {
	for i, name := range stageOrder {
		if name == s {
			return i
		}
	}
	return -1
}

// Next returns the stage following s. ok is false for the last stage and for unknown names.
func Next(s StageName) (next StageName, ok bool) {
	i := IndexOf(s)
	if i < 0 || i == StageCount-1 {
		return "", false
	}
	return stageOrder[i+1], true
}

func (s StageName) Valid() bool {
	return IndexOf(s) >= 0
}

func (s StageName) String() string {
	return string(s)
}
