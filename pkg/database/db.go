package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// DefaultRateLimit is the daily request quota of a new key
const DefaultRateLimit = 10000

// APIKey represents the api_keys table
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"-"`
	Name       string     `gorm:"not null" json:"name"`
	KeyPreview string     `json:"key_preview"`
	RateLimit  int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// APIUsage represents the api_usage table, one row per key and day
type APIUsage struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	KeyID           uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date            string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount    int    `gorm:"default:0" json:"request_count"`
	TotalGatherings int    `gorm:"default:0" json:"total_gatherings"`
	TotalResponses  int    `gorm:"default:0" json:"total_responses"`
	TotalOptions    int    `gorm:"default:0" json:"total_options"`
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// UsageDelta is what one request adds to its key's daily usage
type UsageDelta struct {
	Gatherings int
	Responses  int
	Options    int
}

// Open connects to Postgres when dsn is set and to the sqlite file at path
// otherwise, then migrates the schema
func Open(dsn, path string) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	if dsn != "" {
		cfg.PrepareStmt = false
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), cfg)
	} else {
		if path == "" {
			path = "api_keys.db"
		}
		db, err = gorm.Open(sqlite.Open(path), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := db.AutoMigrate(&APIKey{}, &APIUsage{}, &MasterUser{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// FindOrCreateKey returns the record of an API key, creating it on first use
func FindOrCreateKey(db *gorm.DB, key, name, preview string, now time.Time) (*APIKey, error) {
	var apiKey APIKey
	err := db.Where(APIKey{Key: key}).Attrs(APIKey{
		Name:       name,
		KeyPreview: preview,
		RateLimit:  DefaultRateLimit,
	}).FirstOrCreate(&apiKey).Error
	if err != nil {
		return nil, err
	}

	if err := db.Model(&apiKey).Update("last_used", now).Error; err != nil {
		return nil, err
	}
	apiKey.LastUsed = &now
	return &apiKey, nil
}

// RequestsOn returns how many requests a key made on date
func RequestsOn(db *gorm.DB, keyID uint, date string) (int, error) {
	var usage APIUsage
	err := db.Where("key_id = ? AND date = ?", keyID, date).Limit(1).Find(&usage).Error
	return usage.RequestCount, err
}

// RecordUsage adds one request and its delta to the key's usage for date.
// The upsert works on both Postgres and SQLite.
func RecordUsage(db *gorm.DB, keyID uint, date string, delta UsageDelta) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count":    gorm.Expr("request_count + ?", 1),
			"total_gatherings": gorm.Expr("total_gatherings + ?", delta.Gatherings),
			"total_responses":  gorm.Expr("total_responses + ?", delta.Responses),
			"total_options":    gorm.Expr("total_options + ?", delta.Options),
		}),
	}).Create(&APIUsage{
		KeyID:           keyID,
		Date:            date,
		RequestCount:    1,
		TotalGatherings: delta.Gatherings,
		TotalResponses:  delta.Responses,
		TotalOptions:    delta.Options,
	}).Error
}

// UsageHistory returns the latest days of usage for a key, newest first
func UsageHistory(db *gorm.DB, keyID uint, days int) ([]APIUsage, error) {
	var usage []APIUsage
	err := db.Where("key_id = ?", keyID).Order("date desc").Limit(days).Find(&usage).Error
	return usage, err
}
