package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"friendnet/internal/config"
	"friendnet/internal/logger"
	"friendnet/internal/models"
)

// InitDB opens the postgres connection described by cfg.
func InitDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Type {
	case "postgres":
		dialector = postgres.Open(BuildDSN(cfg))
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	level := gormlogger.Warn
	if cfg.LogSQL {
		level = gormlogger.Info
	}
	newLogger := gormlogger.New(
		logger.Log.WithField("component", "gorm"),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newLogger,
		// unique violations come back as gorm.ErrDuplicatedKey
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// BuildDSN renders the libpq style connection string. The password is left
// out when empty so PGPASSWORD / .pgpass can supply it.
func BuildDSN(cfg config.DatabaseConfig) string {
	var dsnParts []string
	dsnParts = append(dsnParts, fmt.Sprintf("host=%s", cfg.Host))
	dsnParts = append(dsnParts, fmt.Sprintf("port=%d", cfg.Port))
	dsnParts = append(dsnParts, fmt.Sprintf("user=%s", cfg.User))
	dsnParts = append(dsnParts, fmt.Sprintf("dbname=%s", cfg.DBName))
	if cfg.Password != "" {
		dsnParts = append(dsnParts, fmt.Sprintf("password=%s", cfg.Password))
	}
	dsnParts = append(dsnParts, fmt.Sprintf("sslmode=%s", cfg.SSLMode))
	return strings.Join(dsnParts, " ")
}

// constraintStatements back the ledger and identity invariants at the
// storage level, closing the check-then-write window between callers.
var constraintStatements = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_friend_requests_pending_pair
		ON friend_requests (sender_id, receiver_id) WHERE status = 'Pending'`,
}

// AutoMigrateTables runs GORM's auto-migration for all models and then
// creates the indexes gorm tags cannot express.
func AutoMigrateTables(db *gorm.DB) error {
	logger.Log.Info("migrating database schema")
	if err := db.AutoMigrate(&models.User{}, &models.FriendRequest{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range constraintStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create constraint: %w", err)
		}
	}
	logger.Log.WithFields(logrus.Fields{"tables": 2}).Info("database schema migrated")
	return nil
}
