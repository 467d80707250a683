package database

import (
	"context"
	"fmt"
	"os"
	"strings"

	"bac-tracker/internal/models"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// OfficesFile is the YAML layout of the office seed file:
//
//	offices:
//	  - name: Supply Office
//	  - name: Accounting
type OfficesFile struct {
	Offices []struct {
		Name string `yaml:"name"`
	} `yaml:"offices"`
}

func LoadOfficesFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f OfficesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var names []string
	for _, o := range f.Offices {
		if name := strings.TrimSpace(o.Name); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// SeedOffices creates offices that do not exist yet, matched by name.
func SeedOffices(ctx context.Context, db *gorm.DB, names []string, log hclog.Logger) error {
	var result *multierror.Error
	for _, name := range names {
		var count int64
		if err := db.WithContext(ctx).Model(&models.Office{}).Where("name = ?", name).Count(&count).Error; err != nil {
			result = multierror.Append(result, fmt.Errorf("office %q: %w", name, err))
			continue
		}
		if count > 0 {
			continue
		}

		office := models.Office{Name: name}
		if err := db.WithContext(ctx).Create(&office).Error; err != nil {
			result = multierror.Append(result, fmt.Errorf("office %q: %w", name, err))
			continue
		}
		log.Info("created office", "name", name, "id", office.ID)
	}
	return result.ErrorOrNil()
}

type AdminSeed struct {
	Username string
	Password string
	// имя отдела; пусто — без отдела
	Office string
}

// EnsureAdmin creates the bootstrap admin when no admin account exists.
func EnsureAdmin(ctx context.Context, db *gorm.DB, seed AdminSeed, log hclog.Logger) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).
		Where("is_admin = ?", true).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check admin user: %w", err)
	}
	if count > 0 {
		return nil
	}

	admin := models.User{
		Username: seed.Username,
		IsAdmin:  true,
	}
	if seed.Office != "" {
		var office models.Office
		if err := db.WithContext(ctx).Where("name = ?", seed.Office).First(&office).Error; err != nil {
			return fmt.Errorf("admin office %q: %w", seed.Office, notFound(err))
		}
		admin.OfficeID = &office.ID
	}

	if err := NewAccounts(db).CreateUser(ctx, &admin, seed.Password); err != nil {
		return fmt.Errorf("create default admin: %w", err)
	}

	log.Info("created default admin user", "username", admin.Username)
	return nil
}
