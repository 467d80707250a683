package database

import (
	"context"
	"errors"

	"bac-tracker/internal/models"

	"gorm.io/gorm"
)

var ErrUnknownOffice = errors.New("unknown office")

// Directory resolves offices and the office a user belongs to.
type Directory struct {
	db *gorm.DB
}

func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

func (d *Directory) ListOffices(ctx context.Context) ([]models.Office, error) {
	var offices []models.Office
	err := d.db.WithContext(ctx).Order("name asc").Find(&offices).Error
	return offices, err
}

func (d *Directory) OfficeNameOf(ctx context.Context, officeID uint) (string, error) {
	var office models.Office
	err := d.db.WithContext(ctx).First(&office, officeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrUnknownOffice
	}
	if err != nil {
		return "", err
	}
	return office.Name, nil
}

// OfficeOf returns the office of the user, nil if the user has none.
func (d *Directory) OfficeOf(ctx context.Context, userID uint) (*uint, error) {
	var user models.User
	err := d.db.WithContext(ctx).Select("id", "office_id").First(&user, userID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return user.OfficeID, nil
}
