// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bbluechip/catalogadmin/internal/domain"
)

// NewTestDB returns a migrated in-memory SQLite database. A single
// connection is kept so every statement sees the same memory database.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(domain.Tables...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateProduct inserts a product created at the given time.
func CreateProduct(t testing.TB, db *gorm.DB, name string, inStock bool, created time.Time) *domain.Product {
	t.Helper()
	p := &domain.Product{
		Name:       name,
		Slug:       name,
		IsInStock:  inStock,
		CreateDate: created,
		UpdateDate: created,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

// CreateReview inserts a review for the product.
func CreateReview(t testing.TB, db *gorm.DB, productID int64, author string) *domain.Review {
	t.Helper()
	r := &domain.Review{ProductID: productID, Author: author, Content: "content by " + author}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("create review: %v", err)
	}
	return r
}
