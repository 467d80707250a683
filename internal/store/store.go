// Package store defines the persistence contract used by the service layer.
// Implementations live in internal/database (gorm) and internal/memstore (go-memdb).
package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"bac-tracker/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict means a compare-and-swap on a stage row lost to a concurrent writer.
	ErrConflict = errors.New("concurrent modification")
)

// StageUpdate replaces the mutable columns of exactly one stage row. The write
// only happens if the row still has IsSubmitted == ExpectSubmitted.
type StageUpdate struct {
	ProjectID       uint
	StageName       models.StageName
	CreatedAt       *time.Time
	ApprovedAt      *time.Time
	OfficeID        *uint
	Remarks         string
	IsSubmitted     bool
	ExpectSubmitted bool
}

// UpdateFromStage builds a StageUpdate carrying every mutable column of s.
func UpdateFromStage(s models.ProjectStage, expectSubmitted bool) StageUpdate {
	return StageUpdate{
		ProjectID:       s.ProjectID,
		StageName:       s.StageName,
		CreatedAt:       s.CreatedAt,
		ApprovedAt:      s.ApprovedAt,
		OfficeID:        s.OfficeID,
		Remarks:         s.Remarks,
		IsSubmitted:     s.IsSubmitted,
		ExpectSubmitted: expectSubmitted,
	}
}

// Store runs fn as one atomic unit. Any error returned by fn rolls back every
// write made through tx.
type Store interface {
	Atomic(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of operations available inside an atomic unit.
type Tx interface {
	// LockProject loads the project row and serializes concurrent units on it.
	LockProject(projectID uint) (models.Project, error)
	CreateProject(p *models.Project) error
	ListProjects() ([]models.Project, error)
	UpdateProjectHeader(projectID uint, prNumber, details string) error
	StampProject(projectID, actorID uint, at time.Time) error

	// EnsureInitialized creates all canonical stage rows if the project has none.
	// It reports whether rows were created.
	EnsureInitialized(projectID uint, now time.Time) (bool, error)
	// LoadOrdered returns the project's stages in canonical order.
	LoadOrdered(projectID uint) ([]models.ProjectStage, error)
	UpdateStage(u StageUpdate) error

	AppendAuditLog(entry *models.AuditLog) error
	ListAuditLogs(projectID uint) ([]models.AuditLog, error)
}

// InitialStages returns the rows a project gets on first access.
func InitialStages(projectID uint, now time.Time) []models.ProjectStage {
	out := make([]models.ProjectStage, 0, models.StageCount)
	for _, name := range models.Stages() {
		s := models.ProjectStage{ProjectID: projectID, StageName: name}
		if name == models.StagePurchaseRequest {
			t := now
			s.CreatedAt = &t
		}
		out = append(out, s)
	}
	return out
}

// SortStages orders stages canonically in place.
func SortStages(stages []models.ProjectStage) {
	sort.SliceStable(stages, func(i, j int) bool {
		return models.IndexOf(stages[i].StageName) < models.IndexOf(stages[j].StageName)
	})
}
