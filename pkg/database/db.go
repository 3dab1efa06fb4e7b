package database

import (
	"fmt"

	"github.com/arnavshah/staff-calendar-api-go/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Tables lists every migrated table, parents first
var Tables = []any{
	&Person{},
	&State{},
	&SourceMapping{},
	&Shift{},
	&ShiftBlock{},
	&Site{},
	&CycleAssignment{},
	&ManualOverride{},
	&AbsenceType{},
	&Absence{},
	&MedicalLeaveType{},
	&MedicalLeave{},
	&APIKey{},
	&APIUsage{},
	&MasterUser{},
}

// InitDB opens Postgres when DATABASE_URL is set, SQLite at DATA_PATH
// otherwise, and migrates the schema.
func InitDB(cfg config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}

	var dialector gorm.Dialector
	if cfg.DatabaseURL != "" {
		dialector = postgres.New(postgres.Config{
			DSN:                  cfg.DatabaseURL,
			PreferSimpleProtocol: true,
		})
		gormCfg.PrepareStmt = false
	} else {
		dialector = sqlite.Open(cfg.DataPath)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Tables...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
