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
	"gorm.io/gorm/clause"
)

var (
	// ErrCardNotFound 在指定卡片不存在时返回
	ErrCardNotFound = errors.New("card not found")
	// ErrCardExists 在同一用户重复添加同一汉字时返回
	ErrCardExists = errors.New("card already exists for this kanji")
	// ErrInvalidKanji 在汉字字段为空时返回
	ErrInvalidKanji = errors.New("kanji character is required")
)

// CardService 负责卡片的建档、查询与复习编排
// 复习在单个事务内完成：卡片行加锁更新、追加复习日志、回写当日队列
type CardService struct {
	db    *gorm.DB
	users *UserService
}

// NewCardService 构造 CardService
func NewCardService(gdb *gorm.DB, users *UserService) *CardService {
	return &CardService{db: gdb, users: users}
}

// Create 为用户建立某汉字的新卡片；同一 (user, kanji) 只允许一张
func (s *CardService) Create(userID uuid.UUID, kanjiChar string) (*db.Card, error) {
	kanji := strings.TrimSpace(kanjiChar)
	if kanji == "" {
		return nil, ErrInvalidKanji
	}

	var count int64
	if err := s.db.Model(&db.Card{}).
		Where("user_id = ? AND kanji_char = ?", userID, kanji).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check card: %w", err)
	}
	if count > 0 {
		return nil, ErrCardExists
	}

	card := db.Card{
		UserID:    userID,
		KanjiChar: kanji,
		State:     int(srs.StateLearning),
	}
	if err := s.db.Create(&card).Error; err != nil {
		return nil, fmt.Errorf("create card: %w", err)
	}
	return &card, nil
}

// Get 获取属于某用户的卡片
func (s *CardService) Get(userID uuid.UUID, cardID uint) (*db.Card, error) {
	var card db.Card
	if err := s.db.Where("user_id = ?", userID).First(&card, cardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("get card: %w", err)
	}
	return &card, nil
}

// List 返回用户全部卡片，按创建时间升序
func (s *CardService) List(userID uuid.UUID) ([]db.Card, error) {
	var cards []db.Card
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return cards, nil
}

// ReviewInput 定义一次复习提交
type ReviewInput struct {
	Rating         int
	ReviewDuration *float64
	WriteTimeSec   *float64
	StrokeErrors   *int
}

// ReviewResult 汇总复习后的卡片与日志
type ReviewResult struct {
	Card *db.Card
	Log  *db.ReviewLog
}

// Review 应用一次复习：行锁内更新调度字段、写入审计日志，
// 并把卡片在当日队列中重新安置。所有时间按用户时区计算
func (s *CardService) Review(userID uuid.UUID, cardID uint, input ReviewInput) (*ReviewResult, error) {
	rating, err := srs.ParseRating(input.Rating)
	if err != nil {
		return nil, err
	}

	loc := s.users.TimezoneFor(userID)
	scheduler := srs.NewScheduler(loc)
	now := time.Now().In(loc)

	var result ReviewResult
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var card db.Card
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			First(&card, cardID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCardNotFound
			}
			return fmt.Errorf("lock card: %w", err)
		}

		updated, log := scheduler.ReviewCard(cardToSRS(card, loc), rating, now, input.ReviewDuration)
		applySRSCard(&card, updated)

		if err := tx.Save(&card).Error; err != nil {
			return fmt.Errorf("save card: %w", err)
		}

		record := db.ReviewLog{
			CardID:         card.ID,
			UserID:         userID,
			Rating:         int(log.Rating),
			ReviewDatetime: log.ReviewedAt.UTC(),
			ReviewDuration: input.ReviewDuration,
			WriteTimeSec:   input.WriteTimeSec,
			StrokeErrors:   input.StrokeErrors,
			PrevStability:  log.PrevStability,
			NewStability:   log.NewStability,
			PrevDifficulty: log.PrevDifficulty,
			NewDifficulty:  log.NewDifficulty,
			PrevStep:       log.PrevStep,
			NewStep:        log.NewStep,
			PrevState:      int(log.PrevState),
			NewState:       int(log.NewState),
			ElapsedSeconds: log.ElapsedSeconds,
		}
		if err := tx.Omit("Card").Create(&record).Error; err != nil {
			return fmt.Errorf("create review log: %w", err)
		}

		// 当日队列存在时把这张卡重新安置；不存在就等 TodayCards 懒加载
		progressDate := srs.LocalDate(now, loc)
		var queue db.DailyQueue
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND progress_date = ?", userID, progressDate.UTC()).
			First(&queue).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("lock daily queue: %w", err)
			}
		} else {
			next := srs.ApplyReview(queueToSRS(queue), card.ID, card.Due, now)
			applySRSQueue(&queue, next)
			if err := tx.Save(&queue).Error; err != nil {
				return fmt.Errorf("save daily queue: %w", err)
			}
		}

		result.Card = &card
		result.Log = &record
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// IntervalPreview 是某个评分对应的下次到期预览
type IntervalPreview struct {
	Rating   int
	Label    string
	Due      time.Time
	Humanize string
}

// Intervals 模拟四种评分各自的下次到期时间，供前端展示按钮提示
func (s *CardService) Intervals(userID uuid.UUID, cardID uint) ([]IntervalPreview, error) {
	card, err := s.Get(userID, cardID)
	if err != nil {
		return nil, err
	}

	loc := s.users.TimezoneFor(userID)
	scheduler := srs.NewScheduler(loc)
	now := time.Now().In(loc)
	base := cardToSRS(*card, loc)

	previews := make([]IntervalPreview, 0, 4)
	for _, rating := range []srs.Rating{srs.RatingAgain, srs.RatingHard, srs.RatingGood, srs.RatingEasy} {
		simulated, _ := scheduler.ReviewCard(base, rating, now, nil)
		due := now
		if simulated.Due != nil {
			due = *simulated.Due
		}
		previews = append(previews, IntervalPreview{
			Rating:   int(rating),
			Label:    rating.String(),
			Due:      due,
			Humanize: humanizeInterval(due.Sub(now)),
		})
	}

	return previews, nil
}

// humanizeInterval 把到期间隔转成 "10 minutes" / "6 hours" / "3 days" 形式
func humanizeInterval(d time.Duration) string {
	if d < time.Minute {
		return "less than a minute"
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// cardToSRS 把存储模型转换为调度器的值对象；落库时间按 UTC 解释
func cardToSRS(card db.Card, loc *time.Location) srs.Card {
	return srs.Card{
		ID:         card.ID,
		State:      srs.State(card.State),
		Step:       card.Step,
		Stability:  card.Stability,
		Difficulty: card.Difficulty,
		Due:        srs.ToZonePtr(card.Due, loc),
		LastReview: srs.ToZonePtr(card.LastReview, loc),
	}
}

// applySRSCard 把调度结果写回存储模型，时间统一转为 UTC 落库
func applySRSCard(card *db.Card, updated srs.Card) {
	card.State = int(updated.State)
	card.Step = updated.Step
	card.Stability = updated.Stability
	card.Difficulty = updated.Difficulty
	if updated.Due != nil {
		due := updated.Due.UTC()
		card.Due = &due
	} else {
		card.Due = nil
	}
	if updated.LastReview != nil {
		last := updated.LastReview.UTC()
		card.LastReview = &last
	} else {
		card.LastReview = nil
	}
}

func queueToSRS(queue db.DailyQueue) srs.DayQueue {
	return srs.DayQueue{
		KanjiCount:    queue.KanjiCount,
		TodaysCards:   append([]uint(nil), queue.TodaysCards...),
		ReviewedCards: append([]uint(nil), queue.ReviewedCards...),
		ReviewedCount: queue.ReviewedCount,
		Completed:     queue.Completed,
	}
}

func applySRSQueue(queue *db.DailyQueue, next srs.DayQueue) {
	queue.KanjiCount = next.KanjiCount
	queue.TodaysCards = db.IDList(next.TodaysCards)
	queue.ReviewedCards = db.IDList(next.ReviewedCards)
	queue.ReviewedCount = next.ReviewedCount
	queue.Completed = next.Completed
}
