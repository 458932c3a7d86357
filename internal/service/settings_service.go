package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kanjilog/internal/db"
	"github.com/kanjilog/internal/srs"
	"gorm.io/gorm"
)

// ErrInvalidDailyLimit 在每日上限不是正数时返回
var ErrInvalidDailyLimit = errors.New("daily srs limit must be positive")

// SettingsService 负责每个用户的学习设置
type SettingsService struct {
	db    *gorm.DB
	users *UserService
	queue *QueueService
}

// NewSettingsService 构造 SettingsService
func NewSettingsService(gdb *gorm.DB, users *UserService, queue *QueueService) *SettingsService {
	return &SettingsService{db: gdb, users: users, queue: queue}
}

// SettingsInput 定义可更新的设置字段；nil 表示不修改
type SettingsInput struct {
	Theme           *string
	DailySRSLimit   *int
	ShowKanjiOnHome *bool
	Timezone        *string
}

// Get 读取用户设置，不存在时创建默认值
func (s *SettingsService) Get(userID uuid.UUID) (*db.UserSettings, error) {
	var settings db.UserSettings
	if err := s.db.Where("user_id = ?", userID).First(&settings).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("get settings: %w", err)
		}
		settings = db.UserSettings{UserID: userID, Theme: "system", DailySRSLimit: 10, ShowKanjiOnHome: true}
		if err := s.db.Create(&settings).Error; err != nil {
			return nil, fmt.Errorf("create default settings: %w", err)
		}
	}
	return &settings, nil
}

// Update 更新设置。每日上限调大时把今日队列扩容到新上限并取消完成态
func (s *SettingsService) Update(userID uuid.UUID, input SettingsInput) (*db.UserSettings, error) {
	settings, err := s.Get(userID)
	if err != nil {
		return nil, err
	}

	if input.Theme != nil {
		settings.Theme = normalizeTheme(*input.Theme)
	}
	if input.ShowKanjiOnHome != nil {
		settings.ShowKanjiOnHome = *input.ShowKanjiOnHome
	}

	previousLimit := settings.DailySRSLimit
	if input.DailySRSLimit != nil {
		if *input.DailySRSLimit <= 0 {
			return nil, ErrInvalidDailyLimit
		}
		settings.DailySRSLimit = *input.DailySRSLimit
	}

	if input.Timezone != nil {
		name := strings.TrimSpace(*input.Timezone)
		if name != "" {
			if _, err := time.LoadLocation(name); err != nil {
				return nil, fmt.Errorf("%w: %s", ErrInvalidTimezone, name)
			}
		}
		if err := s.db.Model(&db.User{}).Where("id = ?", userID).
			Update("timezone", name).Error; err != nil {
			return nil, fmt.Errorf("update timezone: %w", err)
		}
	}

	if err := s.db.Save(settings).Error; err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}

	// 上限调大后尽量把今日队列补到新目标；队列还没建则等懒加载用新值
	if input.DailySRSLimit != nil && settings.DailySRSLimit > previousLimit {
		if err := s.growTodayToLimit(userID, settings.DailySRSLimit); err != nil {
			return nil, err
		}
	}

	return settings, nil
}

// growTodayToLimit 仅在今日队列已存在时扩容，不触发懒加载
func (s *SettingsService) growTodayToLimit(userID uuid.UUID, limit int) error {
	loc := s.users.TimezoneFor(userID)
	progressDate := srs.LocalDate(time.Now().In(loc), loc)

	var queue db.DailyQueue
	if err := s.db.Where("user_id = ? AND progress_date = ?", userID, progressDate.UTC()).
		First(&queue).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("load daily queue: %w", err)
	}

	missing := limit - queue.KanjiCount
	if missing <= 0 {
		return nil
	}

	if _, err := s.queue.IncreaseDailyKanji(userID, missing); err != nil {
		if errors.Is(err, ErrNothingToAdd) {
			return nil
		}
		return err
	}
	return nil
}

func normalizeTheme(theme string) string {
	switch strings.TrimSpace(strings.ToLower(theme)) {
	case "light":
		return "light"
	case "dark":
		return "dark"
	default:
		return "system"
	}
}
