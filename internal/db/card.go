package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Card 是某个用户对某个汉字的记忆状态记录
// 调度相关字段在首次复习前为空；所有时间戳按 UTC 存取，
// 展示与日界计算时再转换到用户时区
type Card struct {
	gorm.Model
	UserID     uuid.UUID `gorm:"type:uuid;index;index:idx_cards_user_kanji,unique;not null"`
	KanjiChar  string    `gorm:"size:8;index:idx_cards_user_kanji,unique;not null"`
	State      int       `gorm:"not null;default:1"`
	Step       *int
	Stability  *float64
	Difficulty *float64
	Due        *time.Time `gorm:"index"`
	LastReview *time.Time
}

// ReviewLog 是一次复习事件的只增审计记录，写入后不再修改
// 前后两组调度数值随事件一起快照，供进度统计回放
type ReviewLog struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	CardID         uint      `gorm:"index;not null"`
	Card           Card      `gorm:"constraint:OnDelete:CASCADE"`
	UserID         uuid.UUID `gorm:"type:uuid;index;not null"`
	Rating         int       `gorm:"not null"`
	ReviewDatetime time.Time `gorm:"index;not null"`
	ReviewDuration *float64
	WriteTimeSec   *float64
	StrokeErrors   *int
	PrevStability  float64
	NewStability   float64
	PrevDifficulty float64
	NewDifficulty  float64
	PrevStep       int
	NewStep        int
	PrevState      int
	NewState       int
	ElapsedSeconds float64
	CreatedAt      time.Time
}

// BeforeCreate 在入库前补全 UUID 主键
func (l *ReviewLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
