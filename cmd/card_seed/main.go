// Command card_seed creates a factory-default card so a fresh deployment has
// something to provision against. Keys start at the all-zero factory value;
// the provisioning flow rotates them on the device.
package main

import (
	"log"
	"os"

	"boltcard/internal/config"
	"boltcard/internal/models"
	"boltcard/internal/repositories"
	"boltcard/internal/utils"

	"github.com/google/uuid"
)

func main() {
	config.LoadEnv()

	uid := os.Getenv("CARD_UID")
	if uid == "" {
		log.Fatal("CARD_UID must be set in environment (14 hex chars)")
	}
	name := os.Getenv("CARD_NAME")
	if name == "" {
		name = "seed card"
	}

	if err := repositories.InitDB(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer func() {
		if repositories.DB != nil {
			sqlDB, err := repositories.DB.DB()
			if err != nil {
				log.Printf("Failed to get SQL DB instance: %v", err)
			} else if err := sqlDB.Close(); err != nil {
				log.Printf("Failed to close PostgreSQL connection: %v", err)
			}
		}
		if repositories.CacheService != nil {
			if err := repositories.CacheService.Close(); err != nil {
				log.Printf("Failed to close Redis connection: %v", err)
			}
		}
	}()

	var existing models.Card
	result := repositories.DB.Where("uid = ?", uid).First(&existing)
	if result.Error == nil {
		log.Println("Card already exists:", existing.ExternalID)
		return
	}

	card := models.Card{
		WalletID:     config.GetEnv("WALLET_ID", "default"),
		Name:         name,
		UID:          uid,
		ExternalID:   uuid.NewString(),
		TxLimit:      config.GetInt64Env("CARD_TX_LIMIT", 10000),
		DailyLimit:   config.GetInt64Env("CARD_DAILY_LIMIT", 50000),
		MonthlyLimit: config.GetInt64Env("CARD_MONTHLY_LIMIT", 0),
		LimitType:    models.LimitTypeSats,
		Enabled:      true,
		K0:           models.ZeroKey,
		K1:           models.ZeroKey,
		K2:           models.ZeroKey,
		PrevK0:       models.ZeroKey,
		PrevK1:       models.ZeroKey,
		PrevK2:       models.ZeroKey,
		OTP:          utils.MustRandomHex(16),
	}

	if err := repositories.DB.Create(&card).Error; err != nil {
		log.Fatal("Failed to create card:", err)
	}

	log.Println("Card created. OTP:", card.OTP)
}
