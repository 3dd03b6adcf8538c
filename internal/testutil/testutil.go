package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/aniladanir/bulk-messenger-service/internal/domain"
	"github.com/aniladanir/bulk-messenger-service/internal/persistant"
	"github.com/aniladanir/bulk-messenger-service/internal/persistant/sqlite"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DB opens a private in-memory database with every model migrated.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := sqlite.Initialize(dsn, persistant.Models())
	if err != nil {
		tb.Fatalf("failed to init test db: %v", err)
	}
	tb.Cleanup(func() {
		if sqlDb, err := db.DB(); err == nil {
			_ = sqlDb.Close()
		}
	})
	return db
}

func Logger(tb testing.TB) *slog.Logger {
	tb.Helper()
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func SeedAccount(tb testing.TB, db *gorm.DB, userID string, balance int, premium bool) *domain.Account {
	tb.Helper()
	acc := &domain.Account{UserID: userID, Balance: balance, IsPremium: premium}
	if err := db.WithContext(context.Background()).Create(acc).Error; err != nil {
		tb.Fatalf("seed account: %v", err)
	}
	return acc
}

func SeedCampaign(tb testing.TB, db *gorm.DB, userID, name string, keys ...string) *domain.Campaign {
	tb.Helper()
	c := &domain.Campaign{UserID: userID, Name: name, ExtraFieldKeys: keys}
	if err := db.WithContext(context.Background()).Create(c).Error; err != nil {
		tb.Fatalf("seed campaign: %v", err)
	}
	return c
}

func SeedContact(tb testing.TB, db *gorm.DB, campaignID int, name, phone string, fields map[string]string) *domain.Contact {
	tb.Helper()
	c := &domain.Contact{CampaignID: campaignID, Name: name, Phone: phone}
	if fields != nil {
		c.ExtraFields = datatypes.NewJSONType(fields)
	}
	if err := db.WithContext(context.Background()).Create(c).Error; err != nil {
		tb.Fatalf("seed contact: %v", err)
	}
	return c
}
