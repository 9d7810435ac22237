package database

import (
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"

	_ "modernc.org/sqlite"

	"fitdesk/internal/domain/booking"
	"fitdesk/internal/domain/events"
	"fitdesk/internal/domain/hold"
	"fitdesk/internal/domain/member"
	"fitdesk/internal/domain/plan"
)

// Connect opens a Postgres connection for postgres:// DSNs and falls
// back to the cgo-free SQLite driver for local development.
func Connect(dsn string, log *logrus.Logger) (*gorm.DB, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		log.Info("connecting to PostgreSQL")
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	}

	log.WithField("dsn", dsn).Info("using SQLite for local development")

	return gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		&gorm.Config{},
	)
}

// Migrate creates or updates the schema for every persisted entity.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&member.Org{},
		&member.Member{},
		&member.StaffUser{},
		&plan.Template{},
		&plan.Plan{},
		&hold.Hold{},
		&booking.Booking{},
		&events.StoredEvent{},
	)
}
