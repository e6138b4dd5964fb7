package database

import (
	"fmt"
	"time"

	"github.com/labstack/gommon/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"smallcrm/cmd/internal/domain/entity"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Models lists every table owned by the application, in migration order.
var Models = []any{
	&entity.User{},
	&entity.CustomerSegment{},
	&entity.Customer{},
	&entity.CustomerInteraction{},
	&entity.Purchase{},
	&entity.AppointmentType{},
	&entity.Appointment{},
	&entity.AppointmentNote{},
	&entity.AvailabilityWindow{},
}

func Init(driver, dsn string) (*gorm.DB, error) {
	dialector, err := dialectorFor(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(Models...)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	switch driver {
	case DriverSQLite:
		// A single connection serializes writers, which is what keeps
		// "check conflict, then insert" atomic on SQLite.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	case DriverPostgres:
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		ensureNoOverlapConstraint(db)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case DriverSQLite:
		return sqlite.Open(dsn), nil
	case DriverPostgres:
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// ensureNoOverlapConstraint installs an exclusion constraint that rejects
// overlapping active appointments of the same resource. It needs the
// btree_gist extension; without it the advisory lock is the only guard.
func ensureNoOverlapConstraint(db *gorm.DB) {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS btree_gist`,
		`DO $$ BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'appointments_no_overlap') THEN
				ALTER TABLE appointments ADD CONSTRAINT appointments_no_overlap
				EXCLUDE USING gist (resource_id WITH =, int8range(starts_at, ends_at) WITH &&)
				WHERE (status IN ('scheduled', 'confirmed'));
			END IF;
		END $$`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			log.Warnf("appointment overlap constraint not installed: %v", err)
			return
		}
	}
}
