package workflow

import (
	"errors"
	"fmt"

	"bac-tracker/internal/models"
)

// Kind classifies every failure the workflow surface can return.
type Kind int

const (
	KindNone Kind = iota
	KindProjectNotFound
	KindStageNotEligible
	KindMissingApproval
	KindMissingRemark
	KindMissingCreated
	KindMalformedTimestamp
	KindForbidden
	KindMissingField
	KindConflict
	KindPersistenceFailure
)

var kindNames = map[Kind]string{
	KindNone:               "None",
	KindProjectNotFound:    "ProjectNotFound",
	KindStageNotEligible:   "StageNotEligible",
	KindMissingApproval:    "MissingApproval",
	KindMissingRemark:      "MissingRemark",
	KindMissingCreated:     "MissingCreated",
	KindMalformedTimestamp: "MalformedTimestamp",
	KindForbidden:          "Forbidden",
	KindMissingField:       "MissingField",
	KindConflict:           "Conflict",
	KindPersistenceFailure: "PersistenceFailure",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the structured error returned by the engine and the service layer.
type Error struct {
	Kind    Kind
	Stage   models.StageName
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Stage != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Stage)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind only, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrProjectNotFound    = &Error{Kind: KindProjectNotFound}
	ErrStageNotEligible   = &Error{Kind: KindStageNotEligible}
	ErrMissingApproval    = &Error{Kind: KindMissingApproval}
	ErrMissingRemark      = &Error{Kind: KindMissingRemark}
	ErrMissingCreated     = &Error{Kind: KindMissingCreated}
	ErrMalformedTimestamp = &Error{Kind: KindMalformedTimestamp}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrMissingField       = &Error{Kind: KindMissingField}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrPersistence        = &Error{Kind: KindPersistenceFailure}
)

func newError(kind Kind, stage models.StageName, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Stage:   stage,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewError builds an Error of the given kind with a formatted message.
func NewError(kind Kind, format string, args ...interface{}) *Error {
	return newError(kind, "", format, args...)
}

// Persistence wraps a storage error. Already structured errors pass through.
func Persistence(err error) error {
	if err == nil {
		return nil
	}
	var we *Error
	if errors.As(err, &we) {
		return err
	}
	return &Error{Kind: KindPersistenceFailure, Message: "storage failure", Err: err}
}

// KindOf returns the Kind carried by err, KindPersistenceFailure for foreign
// errors and KindNone for nil.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return KindPersistenceFailure
}
