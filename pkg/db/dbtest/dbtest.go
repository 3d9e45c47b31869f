// Package dbtest opens isolated in-memory sqlite databases carrying the
// marketplace schema for repository and service tests.
package dbtest

import (
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  display_name TEXT NOT NULL,
  college TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX users_email_key ON users (email);`,
	`CREATE TABLE listings (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL,
  category TEXT NOT NULL,
  condition TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  image_url TEXT NOT NULL DEFAULT '',
  seller_id TEXT NOT NULL,
  seller_name TEXT NOT NULL,
  seller_email TEXT NOT NULL DEFAULT '',
  college TEXT NOT NULL DEFAULT '',
  sold INTEGER NOT NULL DEFAULT 0,
  sold_at DATETIME,
  created_at DATETIME
);`,
	`CREATE TABLE conversations (
  id TEXT PRIMARY KEY,
  item_id TEXT NOT NULL,
  item_title TEXT NOT NULL,
  item_image TEXT NOT NULL DEFAULT '',
  item_price NUMERIC NOT NULL,
  buyer_id TEXT NOT NULL,
  buyer_name TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  seller_name TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX conversations_item_buyer_key ON conversations (item_id, buyer_id);`,
	`CREATE TABLE messages (
  id TEXT PRIMARY KEY,
  conversation_id TEXT NOT NULL,
  sender_id TEXT NOT NULL,
  text TEXT NOT NULL,
  created_at DATETIME NOT NULL
);`,
	`CREATE INDEX messages_conversation_created_idx ON messages (conversation_id, created_at);`,
	`CREATE TABLE wishlist_entries (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  item_id TEXT NOT NULL,
  title TEXT NOT NULL,
  price NUMERIC NOT NULL,
  image TEXT NOT NULL DEFAULT '',
  created_at DATETIME
);`,
	`CREATE UNIQUE INDEX wishlist_entries_user_item_key ON wishlist_entries (user_id, item_id);`,
	`CREATE TABLE reviews (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  buyer_name TEXT NOT NULL,
  rating INTEGER NOT NULL,
  text TEXT NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE platform_settings (
  id INTEGER PRIMARY KEY,
  platform_fee NUMERIC NOT NULL,
  updated_at DATETIME,
  updated_by TEXT
);`,
	`CREATE TABLE reports (
  id TEXT PRIMARY KEY,
  item_id TEXT NOT NULL,
  item_title TEXT NOT NULL,
  reported_by TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  reason TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  resolved_by TEXT,
  resolved_at DATETIME,
  created_at DATETIME
);`,
}

// Open returns a fresh database private to the calling test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.New(log.New(io.Discard, "", 0), gormlogger.Config{LogLevel: gormlogger.Silent}),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	// A single connection serialises writers the way the Postgres row locks do.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}
