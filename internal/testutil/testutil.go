// Package testutil builds throwaway sqlite databases and fixtures for
// DB-backed tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskboard/internal/database"
	"taskboard/internal/model"
)

// NewDB returns a migrated sqlite database with foreign keys enforced.
// A single connection keeps transactions serialized like row locks would.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "taskboard.db") + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// Fixtures creates rows directly, bypassing repository rules.
type Fixtures struct {
	t  testing.TB
	db *gorm.DB
	n  int
}

func NewFixtures(t testing.TB, db *gorm.DB) *Fixtures {
	return &Fixtures{t: t, db: db}
}

func (f *Fixtures) create(value interface{}) {
	f.t.Helper()
	require.NoError(f.t, f.db.WithContext(context.Background()).Create(value).Error)
}

func (f *Fixtures) User(name string) *model.User {
	f.n++
	user := &model.User{
		Email:          fmt.Sprintf("%s%d@example.com", name, f.n),
		Username:       fmt.Sprintf("%s%d", name, f.n),
		HashedPassword: "x",
		Name:           name,
	}
	f.create(user)
	return user
}

// Project creates a project with its owner membership.
func (f *Fixtures) Project(owner *model.User) *model.Project {
	project := &model.Project{Name: "project", OwnerID: owner.ID}
	f.create(project)
	f.create(&model.Membership{ProjectID: project.ID, UserID: owner.ID, Role: model.RoleOwner})
	return project
}

func (f *Fixtures) Member(project *model.Project, user *model.User, role model.Role) *model.Membership {
	membership := &model.Membership{ProjectID: project.ID, UserID: user.ID, Role: role}
	f.create(membership)
	return membership
}

func (f *Fixtures) Board(project *model.Project) *model.Board {
	board := &model.Board{ProjectID: project.ID, Name: "board"}
	f.create(board)
	return board
}

// Columns creates n columns at positions 0..n-1.
func (f *Fixtures) Columns(board *model.Board, n int) []model.Column {
	columns := make([]model.Column, n)
	for i := range columns {
		columns[i] = model.Column{BoardID: board.ID, Name: fmt.Sprintf("col-%d", i), Position: i}
		f.create(&columns[i])
	}
	return columns
}

// Tasks creates n tasks at positions 0..n-1.
func (f *Fixtures) Tasks(column *model.Column, n int) []model.Task {
	tasks := make([]model.Task, n)
	for i := range tasks {
		tasks[i] = model.Task{ColumnID: column.ID, Title: fmt.Sprintf("task-%d", i), Priority: model.PriorityMedium, Position: i}
		f.create(&tasks[i])
	}
	return tasks
}

func (f *Fixtures) Label(project *model.Project, name string) *model.Label {
	label := &model.Label{ProjectID: project.ID, Name: name, Color: "#ff0000"}
	f.create(label)
	return label
}

// Positions returns id -> position for the given table and parent column.
func Positions(t testing.TB, db *gorm.DB, table, parentColumn string, parentID uuid.UUID) map[uuid.UUID]int {
	t.Helper()
	var rows []struct {
		ID       uuid.UUID
		Position int
	}
	require.NoError(t, db.Table(table).Select("id", "position").Where(parentColumn+" = ?", parentID).Scan(&rows).Error)

	positions := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		positions[row.ID] = row.Position
	}
	return positions
}
