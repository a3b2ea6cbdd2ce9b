package database

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Ananth-NQI/propertybot-backend/internal/config"
	"github.com/Ananth-NQI/propertybot-backend/internal/models"
)

// DSN builds the PostgreSQL connection string. On Cloud Run the Cloud SQL
// unix socket is used instead of TCP.
func DSN(cfg config.DatabaseConfig) string {
	if cfg.OnCloudRun() {
		return fmt.Sprintf("host=/cloudsql/%s user=%s password=%s dbname=%s sslmode=disable",
			cfg.InstanceConnectionName, cfg.User, cfg.Password, cfg.Name)
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port)
}

// Connect opens the database and migrates the lead table
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.OnCloudRun() {
		log.Printf("Connecting to Cloud SQL via socket: %s", cfg.InstanceConnectionName)
	} else {
		log.Printf("Connecting to PostgreSQL at %s:%s", cfg.Host, cfg.Port)
	}

	db, err := gorm.Open(postgres.Open(DSN(cfg)), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("✅ Database connected successfully!")

	log.Println("🔄 Running database migrations...")
	if err := db.AutoMigrate(&models.Lead{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Println("✅ Database migrations completed!")

	return db, nil
}

// Ping checks the connection is alive
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
