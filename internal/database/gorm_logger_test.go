package database_test

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskboard/internal/database"
	"taskboard/internal/model"
)

func openLogged(t *testing.T, l logger.Interface) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "logged.db") + "?_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: l})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.User{}))
	return db
}

func requestContext(buf *bytes.Buffer) context.Context {
	l := zerolog.New(buf).With().Str("request_id", "req-42").Logger()
	return l.WithContext(context.Background())
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var lines []map[string]interface{}
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if raw == "" {
			continue
		}
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(raw), &line), raw)
		lines = append(lines, line)
	}
	return lines
}

func TestGormLogger_ErrorsCarryRequestID(t *testing.T) {
	db := openLogged(t, database.NewGormLogger(logger.Warn, time.Hour))
	var buf bytes.Buffer
	ctx := requestContext(&buf)

	err := db.WithContext(ctx).Exec("SELECT * FROM missing_table").Error
	require.Error(t, err)

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "error", lines[0]["level"])
	assert.Equal(t, "query failed", lines[0]["message"])
	assert.Equal(t, "req-42", lines[0]["request_id"])
	assert.Contains(t, lines[0]["sql"], "missing_table")
}

func TestGormLogger_SkipsRecordNotFound(t *testing.T) {
	db := openLogged(t, database.NewGormLogger(logger.Warn, time.Hour))
	var buf bytes.Buffer

	var user model.User
	err := db.WithContext(requestContext(&buf)).First(&user, "email = ?", "nobody@example.com").Error

	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())
}

func TestGormLogger_SlowQueries(t *testing.T) {
	db := openLogged(t, database.NewGormLogger(logger.Warn, time.Nanosecond))
	var buf bytes.Buffer

	var users []model.User
	require.NoError(t, db.WithContext(requestContext(&buf)).Find(&users).Error)

	lines := logLines(t, &buf)
	require.NotEmpty(t, lines)
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "slow query", lines[0]["message"])
	assert.Equal(t, "req-42", lines[0]["request_id"])
}

func TestGormLogger_LogModeSilences(t *testing.T) {
	db := openLogged(t, database.NewGormLogger(logger.Warn, time.Hour).LogMode(logger.Silent))
	var buf bytes.Buffer

	_ = db.WithContext(requestContext(&buf)).Exec("SELECT * FROM missing_table").Error

	assert.Empty(t, buf.String())
}
