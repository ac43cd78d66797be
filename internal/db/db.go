package db

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"campusdesk/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the process-wide handle, set by Init.
var DB *gorm.DB

// Config returns the gorm settings every connection uses. TranslateError
// turns driver unique violations into gorm.ErrDuplicatedKey.
func Config() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         NewLogger(log.New(os.Stdout, "\r\n", log.LstdFlags)),
	}
}

// NewLogger logs slow queries and real failures. Misses from First or Take
// are expected on most reads and stay quiet.
func NewLogger(w logger.Writer) logger.Interface {
	return logger.New(w, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// Init connects to Postgres and stores the handle in DB.
func Init(dsn string) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(dsn), Config())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established")
	DB = conn
	return conn, nil
}

// Migrate creates or updates every table and seeds the club directory.
func Migrate(conn *gorm.DB) error {
	err := conn.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Vote{},
		&models.LeaveApplication{},
		&models.GatePass{},
		&models.StatusLog{},
		&models.Club{},
		&models.ClubEvent{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	slog.Info("database migration completed")
	return SeedClubs(conn)
}
