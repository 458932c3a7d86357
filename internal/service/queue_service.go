package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kanjilog/internal/db"
	"github.com/kanjilog/internal/srs"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNothingToAdd 在用户没有任何卡片可供加入队列时返回
var ErrNothingToAdd = errors.New("no cards available to add")

// QueueService 负责当日复习队列的懒加载与扩容
// 队列按 (user, 用户时区日历日) 唯一，只新建不删除
type QueueService struct {
	db    *gorm.DB
	users *UserService
}

// NewQueueService 构造 QueueService
func NewQueueService(gdb *gorm.DB, users *UserService) *QueueService {
	return &QueueService{db: gdb, users: users}
}

// TodayQueue 是面向调用方的当日队列视图，ID 列表已解析为卡片
type TodayQueue struct {
	ProgressDate  time.Time
	KanjiCount    int
	ReviewedCount int
	Completed     bool
	TodaysCards   []db.Card
	ReviewedCards []db.Card
}

// TodayCards 返回当日队列，首次访问时按每日上限构建并落库
func (s *QueueService) TodayCards(userID uuid.UUID) (*TodayQueue, error) {
	loc := s.users.TimezoneFor(userID)
	now := time.Now().In(loc)
	progressDate := srs.LocalDate(now, loc)

	var queue db.DailyQueue
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND progress_date = ?", userID, progressDate.UTC()).
			First(&queue).Error; err == nil {
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("load daily queue: %w", err)
		}

		limit := 10
		var settings db.UserSettings
		if err := tx.Where("user_id = ?", userID).First(&settings).Error; err == nil {
			limit = settings.DailySRSLimit
		}

		var cards []db.Card
		if err := tx.Where("user_id = ?", userID).Find(&cards).Error; err != nil {
			return fmt.Errorf("load cards: %w", err)
		}

		scheduler := srs.NewScheduler(loc)
		pool := make([]srs.Card, 0, len(cards))
		for _, c := range cards {
			pool = append(pool, cardToSRS(c, loc))
		}
		built := scheduler.BuildQueue(pool, limit, now)

		queue = db.DailyQueue{
			UserID:       userID,
			ProgressDate: progressDate.UTC(),
		}
		applySRSQueue(&queue, built)

		// 并发首访时以先写入的为准
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&queue).Error; err != nil {
			return fmt.Errorf("create daily queue: %w", err)
		}
		if err := tx.Where("user_id = ? AND progress_date = ?", userID, progressDate.UTC()).
			First(&queue).Error; err != nil {
			return fmt.Errorf("reload daily queue: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.resolveQueue(queue, progressDate)
}

// IncreaseDailyKanji 向今日队列追加 addCount 张卡片
// 优先选未进入队列的卡：未排期的在前，其次到期早的；不足时回收已复习的
func (s *QueueService) IncreaseDailyKanji(userID uuid.UUID, addCount int) (*TodayQueue, error) {
	if addCount <= 0 {
		return nil, fmt.Errorf("add count must be positive")
	}

	// 确保今日队列已存在
	if _, err := s.TodayCards(userID); err != nil {
		return nil, err
	}

	loc := s.users.TimezoneFor(userID)
	now := time.Now().In(loc)
	progressDate := srs.LocalDate(now, loc)

	var queue db.DailyQueue
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND progress_date = ?", userID, progressDate.UTC()).
			First(&queue).Error; err != nil {
			return fmt.Errorf("lock daily queue: %w", err)
		}

		var cards []db.Card
		if err := tx.Where("user_id = ?", userID).Find(&cards).Error; err != nil {
			return fmt.Errorf("load cards: %w", err)
		}
		if len(cards) == 0 {
			return ErrNothingToAdd
		}

		candidates := make([]srs.GrowCandidate, 0, len(cards))
		for _, c := range cards {
			candidates = append(candidates, srs.GrowCandidate{
				ID:        c.ID,
				Due:       c.Due,
				CreatedAt: c.CreatedAt,
			})
		}

		next := srs.Grow(queueToSRS(queue), candidates, addCount)
		applySRSQueue(&queue, next)

		if err := tx.Save(&queue).Error; err != nil {
			return fmt.Errorf("save daily queue: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.resolveQueue(queue, progressDate)
}

// resolveQueue 把队列里的卡片 ID 解析为卡片记录，保持原有顺序
func (s *QueueService) resolveQueue(queue db.DailyQueue, progressDate time.Time) (*TodayQueue, error) {
	ids := make([]uint, 0, len(queue.TodaysCards)+len(queue.ReviewedCards))
	ids = append(ids, queue.TodaysCards...)
	ids = append(ids, queue.ReviewedCards...)

	byID := make(map[uint]db.Card, len(ids))
	if len(ids) > 0 {
		var cards []db.Card
		if err := s.db.Where("id IN ?", ids).Find(&cards).Error; err != nil {
			return nil, fmt.Errorf("resolve queue cards: %w", err)
		}
		for _, c := range cards {
			byID[c.ID] = c
		}
	}

	pick := func(list db.IDList) []db.Card {
		out := make([]db.Card, 0, len(list))
		for _, id := range list {
			if c, ok := byID[id]; ok {
				out = append(out, c)
			}
		}
		return out
	}

	return &TodayQueue{
		ProgressDate:  progressDate,
		KanjiCount:    queue.KanjiCount,
		ReviewedCount: queue.ReviewedCount,
		Completed:     queue.Completed,
		TodaysCards:   pick(queue.TodaysCards),
		ReviewedCards: pick(queue.ReviewedCards),
	}, nil
}
