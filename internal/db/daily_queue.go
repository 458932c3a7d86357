package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IDList 以 JSON 形式落库的有序卡片 ID 列表
type IDList []uint

// DailyQueue 是某用户某个日历日（用户时区）的复习队列
// UserID + ProgressDate 唯一；TodaysCards 与 ReviewedCards 恒不相交
// 队列只新建不删除，历史记录保留
type DailyQueue struct {
	gorm.Model
	UserID        uuid.UUID `gorm:"type:uuid;index;index:idx_daily_queue_user_date,unique;not null"`
	ProgressDate  time.Time `gorm:"index:idx_daily_queue_user_date,unique;not null"`
	KanjiCount    int       `gorm:"not null;default:0"`
	ReviewedCount int       `gorm:"not null;default:0"`
	Completed     bool      `gorm:"not null;default:false"`
	TodaysCards   IDList    `gorm:"serializer:json"`
	ReviewedCards IDList    `gorm:"serializer:json"`
}

// TableName 保持与历史迁移一致的表名
func (DailyQueue) TableName() string {
	return "daily_queues"
}
