package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testModel struct {
	ID   int
	Name string `gorm:"uniqueIndex"`
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&testModel{}))
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := FromGorm(db)

	ctx := context.Background()
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}))

	var count int64
	require.NoError(t, db.Model(&testModel{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	require.NoError(t, db.Model(&testModel{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "rollback should leave 1 record")
}

func TestPing(t *testing.T) {
	client := FromGorm(newTestDB(t))
	assert.NoError(t, client.Ping(context.Background()))
}

func TestIsUniqueViolation(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&testModel{Name: "dup"}).Error)
	err := db.Create(&testModel{Name: "dup"}).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err), "sqlite unique failure: %v", err)

	assert.True(t, IsUniqueViolation(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("connection reset")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestIsNotFound(t *testing.T) {
	db := newTestDB(t)
	var row testModel
	err := db.First(&row, "name = ?", "missing").Error
	assert.True(t, IsNotFound(err))
	assert.False(t, IsNotFound(errors.New("other")))
}
