package models_test

import (
	"errors"
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/framerecorder/pkg/database/models"
)

func TestEmptySnapshotBeforeCreateShouldGenerateUUID(t *testing.T) {
	is := is.New(t)
	snapshot := models.Snapshot{}

	is.NoErr(snapshot.BeforeCreate(nil))
	is.True(len(snapshot.UUID) > 0)
}

func TestSnapshotBeforeCreateKeepsExistingUUID(t *testing.T) {
	is := is.New(t)
	snapshot := models.Snapshot{UUID: "existing-uuid"}

	is.NoErr(snapshot.BeforeCreate(nil))
	is.Equal(snapshot.UUID, "existing-uuid")
}

type testMigrator struct {
	err      error
	migrated []interface{}
}

func (m *testMigrator) AutoMigrate(dst ...interface{}) error {
	if m.err != nil {
		return m.err
	}
	m.migrated = append(m.migrated, dst...)
	return nil
}

func TestAutoMigrateIncludesSnapshot(t *testing.T) {
	is := is.New(t)
	migrator := &testMigrator{}

	is.NoErr(models.AutoMigrate(migrator))
	found := false
	for _, m := range migrator.migrated {
		if _, ok := m.(*models.Snapshot); ok {
			found = true
		}
	}
	is.True(found)
}

func TestAutoMigrateReturnsError(t *testing.T) {
	is := is.New(t)
	err := models.AutoMigrate(&testMigrator{err: errors.New("test migrate failure")})
	is.Equal(err.Error(), "test migrate failure")
}
