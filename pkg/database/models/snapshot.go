package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func init() {
	registerForAutomigration(&Snapshot{})
}

// Snapshot indexes one saved snapshot directory. Metadata holds the
// caller's JSON document verbatim.
type Snapshot struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	UUID       string    `gorm:"uniqueIndex" json:"uuid"`
	Dir        string    `json:"dir"`
	FrameCount int       `json:"frame_count"`
	Metadata   string    `json:"-"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (s *Snapshot) BeforeCreate(tx *gorm.DB) error {
	if len(s.UUID) == 0 {
		s.UUID = uuid.NewString()
	}
	return nil
}
