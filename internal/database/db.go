package database

import (
	"fmt"
	"time"

	"bac-tracker/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/hashicorp/go-hclog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type OpenOptions struct {
	Driver      string
	DSN         string
	MaxAttempts int
	RetryDelay  time.Duration
	Logger      hclog.Logger
}

// Open connects with retries; postgres in docker-compose usually comes up
// after the application.
func Open(opts OpenOptions) (*gorm.DB, error) {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 10
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}

	var dialector gorm.Dialector
	switch opts.Driver {
	case DriverPostgres, "":
		dialector = postgres.Open(opts.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unknown db driver %q", opts.Driver)
	}

	cfg := &gorm.Config{
		Logger: logger.New(
			log.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true}),
			logger.Config{
				SlowThreshold:             500 * time.Millisecond,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	}

	var (
		db  *gorm.DB
		err error
	)
	for i := 1; i <= opts.MaxAttempts; i++ {
		log.Info("connecting to db", "driver", opts.Driver, "attempt", i, "max", opts.MaxAttempts)

		db, err = gorm.Open(dialector, cfg)
		if err == nil {
			break
		}

		log.Warn("failed to connect to db", "error", err)
		if i < opts.MaxAttempts {
			time.Sleep(opts.RetryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to db after %d attempts: %w", opts.MaxAttempts, err)
	}

	if opts.Driver == DriverSQLite {
		// sqlite пишет одним соединением, иначе SQLITE_BUSY на параллельных транзакциях
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	log.Info("connected to db")
	return db, nil
}

// Migrate creates or updates every table the application uses.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Office{},
		&models.User{},
		&models.Project{},
		&models.ProjectStage{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
