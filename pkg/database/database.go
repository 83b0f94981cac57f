package database

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ijara_backend/internal/model"
)

// Open connects to PostgreSQL. Duplicate-key violations are translated to
// gorm.ErrDuplicatedKey.
func Open(dsn string) (*gorm.DB, error) {
	pgConfig := postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Error),
		PrepareStmt:    false,
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.New(pgConfig), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	log.Println("Database connected successfully!")
	return db, nil
}

// Models lists every table the API owns, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Amenity{},
		&model.Ad{},
		&model.AdImage{},
		&model.ModerationLog{},
		&model.RateLimitCounter{},
	}
}

func MigrateDatabase(db *gorm.DB, models ...interface{}) error {
	for _, m := range models {
		if !db.Migrator().HasTable(m) {
			if err := db.Migrator().CreateTable(m); err != nil {
				return fmt.Errorf("create table for %T: %w", m, err)
			}
			log.Printf("Created table for %T\n", m)
			continue
		}
		if err := db.Migrator().AutoMigrate(m); err != nil {
			return fmt.Errorf("migrate %T: %w", m, err)
		}
		log.Printf("Updated table for %T\n", m)
	}
	return nil
}
