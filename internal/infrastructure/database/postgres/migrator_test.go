package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MikeL71221ibpm/iBPM-sub012/internal/config"
)

func TestMigrationURLUsesPgx5Scheme(t *testing.T) {
	url := MigrationURL(config.DatabaseConfig{
		Host: "localhost", Port: 5432, User: "ibpm", Password: "secret",
		DBName: "ibpm", SSLMode: "disable",
	})

	assert.True(t, strings.HasPrefix(url, "pgx5://"), url)
	assert.NotContains(t, url, "postgres://")
}

func TestRollbackMigrationRejectsNonPositiveSteps(t *testing.T) {
	for _, steps := range []int{0, -1} {
		err := RollbackMigration("pgx5://localhost/ibpm", "file://migrations", steps)
		assert.Error(t, err)
	}
}
