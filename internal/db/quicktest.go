package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 快速测验的两个生命周期状态
const (
	QuickTestInProgress = "in_progress"
	QuickTestComplete   = "complete"
)

// QuickTest 是一次"字义四选一"测验的进度记录
type QuickTest struct {
	gorm.Model
	UserID        uuid.UUID `gorm:"type:uuid;index;not null"`
	State         string    `gorm:"size:16;default:in_progress"`
	QuestionLimit int       `gorm:"not null"`
	Current       int       `gorm:"not null;default:0"`
	CorrectCount  int       `gorm:"not null;default:0"`
	WrongCount    int       `gorm:"not null;default:0"`
	StartTime     time.Time `gorm:"index;not null"`
	Questions     []QuickTestQuestion `gorm:"constraint:OnDelete:CASCADE"`
}

// QuickTestQuestion 是测验中的一道题，作答后记录选择与对错
type QuickTestQuestion struct {
	gorm.Model
	QuickTestID    uint   `gorm:"index;not null"`
	KanjiChar      string `gorm:"size:8;not null"`
	CorrectMeaning string `gorm:"not null"`
	OptionA        string `gorm:"not null"`
	OptionB        string `gorm:"not null"`
	OptionC        string `gorm:"not null"`
	OptionD        string `gorm:"not null"`
	ChosenMeaning  *string
	IsCorrect      *bool
}
