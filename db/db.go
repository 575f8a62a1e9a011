package db

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/ozodbekdev/fitclub-server/cmd/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewPSQLStorage opens the Postgres connection. TranslateError is on so the
// attendance unique-index violation surfaces as gorm.ErrDuplicatedKey, which
// the check-in path depends on.
func NewPSQLStorage() (*gorm.DB, error) {
	if err := godotenv.Load(); err != nil {
		utils.GetLogger().Warn("no .env file found, relying on environment")
	}

	connString := os.Getenv("DB_URL")

	db, err := gorm.Open(postgres.Open(connString), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)

	return db, nil
}
