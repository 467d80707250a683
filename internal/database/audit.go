package database

import "bac-tracker/internal/models"

// журнал изменений проекта, пишется в той же транзакции, что и само изменение
func (t *tx) AppendAuditLog(entry *models.AuditLog) error {
	return t.db.Create(entry).Error
}

func (t *tx) ListAuditLogs(projectID uint) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := t.db.Where("entity = ? AND entity_id = ?", "project", projectID).
		Order("id asc").
		Find(&logs).Error
	return logs, err
}
