// Package dbtest opens migrated in-memory databases for package tests.
package dbtest

import (
	"testing"

	"feasto-api/config"
	"feasto-api/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a fresh in-memory sqlite database with the full schema. A
// single connection keeps every query on the same in-memory database.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts a user with a throwaway password hash.
func CreateUser(t testing.TB, db *gorm.DB, username string, role models.UserRole) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", PasswordHash: "x", Role: role, IsActive: true}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// CreateFood inserts an available food item.
func CreateFood(t testing.TB, db *gorm.DB, name, price string) *models.FoodItem {
	t.Helper()
	f := &models.FoodItem{Name: name, Description: name, Price: decimal.RequireFromString(price), Category: "Main", Available: true}
	if err := db.Create(f).Error; err != nil {
		t.Fatalf("create food %s: %v", name, err)
	}
	return f
}

// CreateOrder inserts an order directly, bypassing the service.
func CreateOrder(t testing.TB, db *gorm.DB, customer *models.User, status models.OrderStatus, total string) *models.Order {
	t.Helper()
	o := &models.Order{
		CustomerID:      customer.ID,
		CustomerName:    customer.Username,
		DeliveryAddress: "1 Test Street",
		PhoneNumber:     "5550100",
		PaymentMethod:   models.PaymentCash,
		Total:           decimal.RequireFromString(total),
		Status:          status,
	}
	if err := db.Omit("Customer", "DeliveryStaff", "Items").Create(o).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}
