package service

import (
	"time"

	"bac-tracker/internal/models"
	"bac-tracker/internal/store"
)

// AuditTrail stamps the edited/accessed fields of a project and appends the
// change to the project history. It runs inside the unit that made the change.
type AuditTrail struct{}

func (AuditTrail) Stamp(tx store.Tx, projectID, actorID uint, at time.Time, action, details string) error {
	if err := tx.StampProject(projectID, actorID, at); err != nil {
		return err
	}
	return tx.AppendAuditLog(&models.AuditLog{
		CreatedAt: at,
		UserID:    actorID,
		Entity:    "project",
		EntityID:  projectID,
		Action:    action,
		Details:   details,
	})
}
