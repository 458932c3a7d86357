package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kanjilog/internal/db"
	"github.com/kanjilog/internal/kanjidex"
	"github.com/kanjilog/internal/srs"
	"gorm.io/gorm"
)

// "已学会"判定阈值：领域调参值，按配置对待而非算法不变量
const (
	DefaultLearnedWriteTimeMax = 30.0
	DefaultLearnedStrokeErrMax = 2
)

// ProgressService 提供只读的学习进度统计
// 一张卡判定为"已学会"需要存在一条满足条件的复习日志：
// 评分为 Good/Easy，且书写用时与笔画错误都在阈值内（缺省视为达标）
type ProgressService struct {
	db    *gorm.DB
	users *UserService

	WriteTimeMax float64
	StrokeErrMax int
}

// NewProgressService 构造 ProgressService，阈值取默认配置
func NewProgressService(gdb *gorm.DB, users *UserService) *ProgressService {
	return &ProgressService{
		db:           gdb,
		users:        users,
		WriteTimeMax: DefaultLearnedWriteTimeMax,
		StrokeErrMax: DefaultLearnedStrokeErrMax,
	}
}

// learnedRecord 是某张卡最早一条达标日志的快照
type learnedRecord struct {
	CardID    uint
	KanjiChar string
	LearnedAt time.Time
}

// learnedRecords 返回用户所有已学会的卡，按最早达标日志时间升序
func (s *ProgressService) learnedRecords(userID uuid.UUID) ([]learnedRecord, error) {
	type row struct {
		CardID         uint
		KanjiChar      string
		ReviewDatetime time.Time
	}

	var rows []row
	if err := s.db.Model(&db.ReviewLog{}).
		Select("review_logs.card_id AS card_id, cards.kanji_char AS kanji_char, review_logs.review_datetime AS review_datetime").
		Joins("JOIN cards ON cards.id = review_logs.card_id").
		Where("review_logs.user_id = ?", userID).
		Where("review_logs.rating IN ?", []int{int(srs.RatingGood), int(srs.RatingEasy)}).
		Where("review_logs.write_time_sec IS NULL OR review_logs.write_time_sec <= ?", s.WriteTimeMax).
		Where("review_logs.stroke_errors IS NULL OR review_logs.stroke_errors <= ?", s.StrokeErrMax).
		Order("review_logs.review_datetime ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list qualifying reviews: %w", err)
	}

	seen := make(map[uint]struct{}, len(rows))
	records := make([]learnedRecord, 0, len(rows))
	for _, r := range rows {
		if _, dup := seen[r.CardID]; dup {
			continue
		}
		seen[r.CardID] = struct{}{}
		records = append(records, learnedRecord{
			CardID:    r.CardID,
			KanjiChar: r.KanjiChar,
			LearnedAt: r.ReviewDatetime,
		})
	}

	return records, nil
}

// LearnedCount 返回已学会的卡片数量
func (s *ProgressService) LearnedCount(userID uuid.UUID) (int, error) {
	records, err := s.learnedRecords(userID)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// PieChart 汇总已学会与剩余的数量
type PieChart struct {
	Learned   int `json:"learned"`
	Remaining int `json:"remaining"`
}

// Pie 计算饼图数据：剩余 = 全部卡片 − 已学会，下限为零
func (s *ProgressService) Pie(userID uuid.UUID) (*PieChart, error) {
	records, err := s.learnedRecords(userID)
	if err != nil {
		return nil, err
	}

	var total int64
	if err := s.db.Model(&db.Card{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count cards: %w", err)
	}

	remaining := int(total) - len(records)
	if remaining < 0 {
		remaining = 0
	}

	return &PieChart{Learned: len(records), Remaining: remaining}, nil
}

// LinePoint 是折线图上的一个点：某个日历日学会的字数
type LinePoint struct {
	Date    string `json:"date"`
	Learned int    `json:"learned"`
}

// LineChart 按用户时区把每张卡最早达标的日志归入日历日并计数
func (s *ProgressService) LineChart(userID uuid.UUID) ([]LinePoint, error) {
	records, err := s.learnedRecords(userID)
	if err != nil {
		return nil, err
	}

	loc := s.users.TimezoneFor(userID)

	counts := make(map[string]int, len(records))
	for _, r := range records {
		// 落库时间按 UTC 解释，再转用户时区取日历日
		day := srs.LocalDate(r.LearnedAt.UTC(), loc).Format("2006-01-02")
		counts[day]++
	}

	points := make([]LinePoint, 0, len(counts))
	for day, n := range counts {
		points = append(points, LinePoint{Date: day, Learned: n})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })

	return points, nil
}

// JLPTBuckets 按 JLPT 等级分桶的已学会汉字
// Unclassified 单独记录，不参与任何等级桶
type JLPTBuckets struct {
	Levels       map[string][]string `json:"levels"`
	Unclassified []string            `json:"unclassified"`
}

// ByJLPT 把已学会的汉字按外部字典的 JLPT 等级分桶
func (s *ProgressService) ByJLPT(userID uuid.UUID) (*JLPTBuckets, error) {
	records, err := s.learnedRecords(userID)
	if err != nil {
		return nil, err
	}

	buckets := &JLPTBuckets{Levels: map[string][]string{}}
	for _, r := range records {
		entry, ok := kanjidex.Lookup(r.KanjiChar)
		if !ok || entry.JLPT == "" {
			buckets.Unclassified = append(buckets.Unclassified, r.KanjiChar)
			continue
		}
		buckets.Levels[entry.JLPT] = append(buckets.Levels[entry.JLPT], r.KanjiChar)
	}

	return buckets, nil
}

// UserLearnedSummary 是后台总览中的单个用户统计
type UserLearnedSummary struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Learned  int       `json:"learned"`
	Total    int       `json:"total"`
}

// AllUsers 汇总每个用户的已学会数量，供后台总览使用
func (s *ProgressService) AllUsers() ([]UserLearnedSummary, error) {
	var users []db.User
	if err := s.db.Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	summaries := make([]UserLearnedSummary, 0, len(users))
	for _, u := range users {
		records, err := s.learnedRecords(u.ID)
		if err != nil {
			return nil, err
		}
		var total int64
		if err := s.db.Model(&db.Card{}).Where("user_id = ?", u.ID).Count(&total).Error; err != nil {
			return nil, fmt.Errorf("count cards: %w", err)
		}
		summaries = append(summaries, UserLearnedSummary{
			UserID:   u.ID,
			Username: u.Username,
			Learned:  len(records),
			Total:    int(total),
		})
	}

	return summaries, nil
}
