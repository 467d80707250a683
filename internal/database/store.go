package database

import (
	"context"
	"errors"
	"time"

	"bac-tracker/internal/models"
	"bac-tracker/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store implements store.Store on top of gorm. Each Atomic unit is one SQL
// transaction that starts by locking the project row (SELECT ... FOR UPDATE on
// postgres, a single writer connection on sqlite).
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&tx{db: gtx})
	})
}

type tx struct {
	db *gorm.DB
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

func (t *tx) LockProject(projectID uint) (models.Project, error) {
	var p models.Project
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, projectID).Error
	return p, notFound(err)
}

func (t *tx) CreateProject(p *models.Project) error {
	return t.db.Create(p).Error
}

func (t *tx) ListProjects() ([]models.Project, error) {
	var projects []models.Project
	err := t.db.Order("id asc").Find(&projects).Error
	return projects, err
}

func (t *tx) updateProject(projectID uint, values map[string]interface{}) error {
	res := t.db.Model(&models.Project{}).Where("id = ?", projectID).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *tx) UpdateProjectHeader(projectID uint, prNumber, details string) error {
	return t.updateProject(projectID, map[string]interface{}{
		"pr_number":       prNumber,
		"project_details": details,
	})
}

func (t *tx) StampProject(projectID, actorID uint, at time.Time) error {
	return t.updateProject(projectID, map[string]interface{}{
		"edited_at":        at,
		"edited_by":        actorID,
		"last_accessed_at": at,
		"last_accessed_by": actorID,
	})
}

func (t *tx) EnsureInitialized(projectID uint, now time.Time) (bool, error) {
	var count int64
	if err := t.db.Model(&models.ProjectStage{}).
		Where("project_id = ?", projectID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	rows := store.InitialStages(projectID, now)
	if err := t.db.Create(&rows).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (t *tx) LoadOrdered(projectID uint) ([]models.ProjectStage, error) {
	var stages []models.ProjectStage
	if err := t.db.Where("project_id = ?", projectID).Find(&stages).Error; err != nil {
		return nil, err
	}
	// порядок по id не гарантирует канонический порядок этапов
	store.SortStages(stages)
	return stages, nil
}

func (t *tx) UpdateStage(u store.StageUpdate) error {
	res := t.db.Model(&models.ProjectStage{}).
		Where("project_id = ? AND stage_name = ? AND is_submitted = ?", u.ProjectID, string(u.StageName), u.ExpectSubmitted).
		Updates(map[string]interface{}{
			"created_at":   u.CreatedAt,
			"approved_at":  u.ApprovedAt,
			"office_id":    u.OfficeID,
			"remarks":      u.Remarks,
			"is_submitted": u.IsSubmitted,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := t.db.Model(&models.ProjectStage{}).
		Where("project_id = ? AND stage_name = ?", u.ProjectID, string(u.StageName)).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return store.ErrNotFound
	}
	return store.ErrConflict
}
