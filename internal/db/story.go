package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// KanjiStory 保存为用户生成的记忆故事，按 (user, kanji) 取最新一条
type KanjiStory struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	KanjiChar string    `gorm:"size:8;index;not null"`
	Story     string    `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate 在入库前补全 UUID 主键
func (s *KanjiStory) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
