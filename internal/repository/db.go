package repository

import (
	"fmt"

	"github.com/finebank/investquest/internal/config"
	"github.com/finebank/investquest/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Database wraps the gorm handle shared by repositories.
type Database struct {
	*gorm.DB
}

func NewDatabase(cfg *config.Database) (*Database, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&models.GameHistory{}); err != nil {
		return nil, err
	}

	return &Database{DB: db}, nil
}
