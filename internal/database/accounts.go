package database

import (
	"context"
	"errors"

	"bac-tracker/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// Accounts is the read side of the user table needed for sessions.
type Accounts struct {
	db *gorm.DB
}

func NewAccounts(db *gorm.DB) *Accounts {
	return &Accounts{db: db}
}

func (a *Accounts) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	var user models.User
	err := a.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (a *Accounts) Lookup(ctx context.Context, userID uint) (models.User, error) {
	var user models.User
	err := a.db.WithContext(ctx).First(&user, userID).Error
	return user, notFound(err)
}

// CreateUser hashes password and stores the user. Used by seeding and tests;
// account management itself lives elsewhere.
func (a *Accounts) CreateUser(ctx context.Context, user *models.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	return a.db.WithContext(ctx).Create(user).Error
}
