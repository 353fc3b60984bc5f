package repos

import (
	"errors"

	"github.com/tauraamui/framerecorder/pkg/database/dbconn"
	"github.com/tauraamui/framerecorder/pkg/database/models"
	"github.com/tauraamui/xerror"
	"gorm.io/gorm"
)

const DefaultListLimit = 50

var ErrSnapshotNotFound = xerror.NewWithKind("snapshot_repo", "snapshot not found")

type SnapshotRepository struct {
	DB dbconn.GormWrapper
}

func (r *SnapshotRepository) Create(snapshot *models.Snapshot) error {
	return r.DB.Create(snapshot).Error()
}

// List returns up to limit snapshots, newest first.
func (r *SnapshotRepository) List(limit int) ([]models.Snapshot, error) {
	if limit < 1 {
		limit = DefaultListLimit
	}
	snapshots := []models.Snapshot{}
	if err := r.DB.Order("created_at desc, id desc").Limit(limit).Find(&snapshots).Error(); err != nil {
		return nil, xerror.Errorf("unable to list snapshots: %w", err)
	}
	return snapshots, nil
}

func (r *SnapshotRepository) FindByUUID(uuid string) (models.Snapshot, error) {
	snapshot := models.Snapshot{}
	if err := r.DB.Where("uuid = ?", uuid).First(&snapshot).Error(); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return snapshot, xerror.Errorf("%w: %s", ErrSnapshotNotFound, uuid)
		}
		return snapshot, xerror.Errorf("unable to find snapshot %s: %w", uuid, err)
	}

	return snapshot, nil
}
