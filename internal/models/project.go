package models

import "time"

type Project struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	PRNumber       string    `gorm:"size:100;not null" json:"prNumber"`
	ProjectDetails string    `gorm:"type:text;not null" json:"projectDetails"`
	CreatorUserID  uint      `json:"creatorUserId"`
	CreatedAt      time.Time `json:"createdAt"`

	// аудит: обновляется при каждом изменении, но не при чтении
	EditedAt       *time.Time `json:"editedAt"`
	EditedBy       *uint      `json:"editedBy"`
	LastAccessedAt *time.Time `json:"lastAccessedAt"`
	LastAccessedBy *uint      `json:"lastAccessedBy"`
}

// ProjectStage — одна строка этапа; пара (ProjectID, StageName) уникальна.
type ProjectStage struct {
	ID          uint       `gorm:"primaryKey" json:"-"`
	ProjectID   uint       `gorm:"not null;uniqueIndex:idx_project_stage" json:"projectId"`
	StageName   StageName  `gorm:"type:varchar(50);not null;uniqueIndex:idx_project_stage" json:"stageName"`
	CreatedAt   *time.Time `gorm:"autoCreateTime:false" json:"createdAt"`
	ApprovedAt  *time.Time `json:"approvedAt"`
	OfficeID    *uint      `json:"officeId"`
	Remarks     string     `gorm:"type:text;not null" json:"remarks"`
	IsSubmitted bool       `gorm:"not null" json:"isSubmitted"`
}
