package database

import (
	"log"

	"skustack/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}

// Migrate creates or updates the schema for every persisted model.
// Ordered so referenced tables exist before the tables referencing them.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Company{},
		&model.Location{},
		&model.User{},
		&model.RefreshToken{},
		&model.Component{},
		&model.Lot{},
		&model.SKU{},
		&model.BOMVersion{},
		&model.BOMLine{},
		&model.Transaction{},
		&model.TransactionLine{},
		&model.FinishedGoodsLine{},
		&model.SalesDaily{},
		&model.AuditLog{},
	)
}
