// Package memstore keeps projects and stages in a go-memdb database. Write
// transactions in go-memdb are serialized, which gives every Atomic unit
// exclusive access for its whole read-decide-write sequence.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"bac-tracker/internal/models"
	"bac-tracker/internal/store"

	"github.com/hashicorp/go-memdb"
)

const (
	projectTable = "projects"
	stageTable   = "project_stages"
	auditTable   = "audit_logs"

	idIndex       = "id"
	projectIndex  = "project"
	entityIDIndex = "entity_id"
)

func Schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			projectTable: {
				Name: projectTable,
				Indexes: map[string]*memdb.IndexSchema{
					idIndex: {
						Name:    idIndex,
						Unique:  true,
						Indexer: &memdb.UintFieldIndex{Field: "ID"},
					},
				},
			},
			stageTable: {
				Name: stageTable,
				Indexes: map[string]*memdb.IndexSchema{
					idIndex: {
						Name:   idIndex,
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.UintFieldIndex{Field: "ProjectID"},
								&memdb.StringFieldIndex{Field: "StageName"},
							},
						},
					},
					projectIndex: {
						Name:    projectIndex,
						Indexer: &memdb.UintFieldIndex{Field: "ProjectID"},
					},
				},
			},
			auditTable: {
				Name: auditTable,
				Indexes: map[string]*memdb.IndexSchema{
					idIndex: {
						Name:    idIndex,
						Unique:  true,
						Indexer: &memdb.UintFieldIndex{Field: "ID"},
					},
					entityIDIndex: {
						Name:    entityIDIndex,
						Indexer: &memdb.UintFieldIndex{Field: "EntityID"},
					},
				},
			},
		},
	}
}

type Store struct {
	db *memdb.MemDB

	projectSeq atomic.Uint64
	stageSeq   atomic.Uint64
	auditSeq   atomic.Uint64
}

func New() (*Store, error) {
	db, err := memdb.NewMemDB(Schema())
	if err != nil {
		return nil, fmt.Errorf("memdb schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	if err := fn(&tx{s: s, txn: txn}); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

type tx struct {
	s   *Store
	txn *memdb.Txn
}

func (t *tx) LockProject(projectID uint) (models.Project, error) {
	raw, err := t.txn.First(projectTable, idIndex, projectID)
	if err != nil {
		return models.Project{}, err
	}
	if raw == nil {
		return models.Project{}, store.ErrNotFound
	}
	return *raw.(*models.Project), nil
}

func (t *tx) CreateProject(p *models.Project) error {
	if p.ID == 0 {
		p.ID = uint(t.s.projectSeq.Add(1))
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	row := *p
	return t.txn.Insert(projectTable, &row)
}

func (t *tx) ListProjects() ([]models.Project, error) {
	it, err := t.txn.Get(projectTable, idIndex)
	if err != nil {
		return nil, err
	}
	var out []models.Project
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, *raw.(*models.Project))
	}
	// ключи индекса в uvarint, порядок итерации не числовой
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) modifyProject(projectID uint, fn func(p *models.Project)) error {
	p, err := t.LockProject(projectID)
	if err != nil {
		return err
	}
	fn(&p)
	return t.txn.Insert(projectTable, &p)
}

func (t *tx) UpdateProjectHeader(projectID uint, prNumber, details string) error {
	return t.modifyProject(projectID, func(p *models.Project) {
		p.PRNumber = prNumber
		p.ProjectDetails = details
	})
}

func (t *tx) StampProject(projectID, actorID uint, at time.Time) error {
	return t.modifyProject(projectID, func(p *models.Project) {
		edited, accessed := at, at
		editor, accessor := actorID, actorID
		p.EditedAt, p.EditedBy = &edited, &editor
		p.LastAccessedAt, p.LastAccessedBy = &accessed, &accessor
	})
}

func (t *tx) stages(projectID uint) ([]models.ProjectStage, error) {
	it, err := t.txn.Get(stageTable, projectIndex, projectID)
	if err != nil {
		return nil, err
	}
	var out []models.ProjectStage
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, *raw.(*models.ProjectStage))
	}
	return out, nil
}

func (t *tx) EnsureInitialized(projectID uint, now time.Time) (bool, error) {
	existing, err := t.stages(projectID)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}

	for _, s := range store.InitialStages(projectID, now) {
		row := s
		row.ID = uint(t.s.stageSeq.Add(1))
		if err := t.txn.Insert(stageTable, &row); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (t *tx) LoadOrdered(projectID uint) ([]models.ProjectStage, error) {
	out, err := t.stages(projectID)
	if err != nil {
		return nil, err
	}
	store.SortStages(out)
	return out, nil
}

func (t *tx) UpdateStage(u store.StageUpdate) error {
	raw, err := t.txn.First(stageTable, idIndex, u.ProjectID, string(u.StageName))
	if err != nil {
		return err
	}
	if raw == nil {
		return store.ErrNotFound
	}

	row := *raw.(*models.ProjectStage)
	if row.IsSubmitted != u.ExpectSubmitted {
		return store.ErrConflict
	}
	row.CreatedAt = u.CreatedAt
	row.ApprovedAt = u.ApprovedAt
	row.OfficeID = u.OfficeID
	row.Remarks = u.Remarks
	row.IsSubmitted = u.IsSubmitted
	return t.txn.Insert(stageTable, &row)
}

func (t *tx) AppendAuditLog(entry *models.AuditLog) error {
	entry.ID = uint(t.s.auditSeq.Add(1))
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	row := *entry
	return t.txn.Insert(auditTable, &row)
}

func (t *tx) ListAuditLogs(projectID uint) ([]models.AuditLog, error) {
	it, err := t.txn.Get(auditTable, entityIDIndex, projectID)
	if err != nil {
		return nil, err
	}
	var out []models.AuditLog
	for raw := it.Next(); raw != nil; raw = it.Next() {
		entry := *raw.(*models.AuditLog)
		if entry.Entity == "project" {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
