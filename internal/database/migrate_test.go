package database

import (
	"io/fs"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsHaveMatchingUpAndDownFiles(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	require.NoError(t, err)

	pattern := regexp.MustCompile(`^(\d+)_.*\.(up|down)\.sql$`)
	byVersion := map[string]map[string]bool{}

	for _, entry := range entries {
		match := pattern.FindStringSubmatch(entry.Name())
		if match == nil {
			t.Fatalf("unexpected file in migrations: %s", entry.Name())
		}
		version, direction := match[1], match[2]
		if byVersion[version] == nil {
			byVersion[version] = map[string]bool{}
		}
		require.False(t, byVersion[version][direction], "duplicate %s migration for version %s", direction, version)
		byVersion[version][direction] = true
	}

	require.NotEmpty(t, byVersion)
	for version, dirs := range byVersion {
		assert.True(t, dirs["up"] && dirs["down"], "version %s must include both up and down files", version)
	}
}

func TestInitMigrationDropsEveryTableItCreates(t *testing.T) {
	up, err := fs.ReadFile(migrationFiles, "migrations/000001_init.up.sql")
	require.NoError(t, err)
	down, err := fs.ReadFile(migrationFiles, "migrations/000001_init.down.sql")
	require.NoError(t, err)

	created := regexp.MustCompile(`(?m)^CREATE TABLE (\w+)`).FindAllStringSubmatch(string(up), -1)
	require.NotEmpty(t, created)

	for _, match := range created {
		assert.Contains(t, string(down), "DROP TABLE IF EXISTS "+match[1]+";")
	}
	assert.True(t, strings.Count(string(down), "DROP TABLE") == len(created))
}
