package srs

import (
	"math"
	"time"
)

// 难度始终限制在 [0.05, 0.95] 区间内
const (
	minDifficulty = 0.05
	maxDifficulty = 0.95

	defaultDifficulty = 0.3
)

// Scheduler 是确定性的启发式调度器，所有输入输出时间均使用用户时区
// 它是纯计算：不读写存储，不修改入参，相同输入必得相同输出
type Scheduler struct {
	loc *time.Location
}

// NewScheduler 以用户时区构造调度器，loc 为 nil 时按 UTC 处理
func NewScheduler(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{loc: loc}
}

// Location 返回调度器绑定的用户时区
func (s *Scheduler) Location() *time.Location {
	return s.loc
}

// ReviewCard 应用一次复习，返回新的卡片状态与复习日志
// reviewTime 为零值时取用户时区的当前时间；duration 可为 nil
// 结果保证：due 不早于 reviewTime，难度在区间内，稳定度大于零
func (s *Scheduler) ReviewCard(card Card, rating Rating, reviewTime time.Time, duration *float64) (Card, ReviewLog) {
	now := reviewTime
	if now.IsZero() {
		now = time.Now().In(s.loc)
	} else {
		now = ToZone(now, s.loc)
	}

	updated := card.Clone()
	updated.Due = ToZonePtr(updated.Due, s.loc)
	updated.LastReview = ToZonePtr(updated.LastReview, s.loc)

	// 首次复习前的字段缺省：step=0 stability=0.0 difficulty=0.3
	stability := 0.0
	if updated.Stability != nil {
		stability = *updated.Stability
	}
	difficulty := defaultDifficulty
	if updated.Difficulty != nil {
		difficulty = *updated.Difficulty
	}
	step := 0
	if updated.Step != nil {
		step = *updated.Step
	}

	difficulty = clampDifficulty(difficulty)

	elapsed := 0.0
	if updated.LastReview != nil {
		elapsed = now.Sub(*updated.LastReview).Seconds()
	}

	var (
		newState      State
		newStep       int
		newStability  float64
		newDifficulty float64
		nextDue       time.Time
	)

	switch rating {
	case RatingAgain:
		// 遗忘：回到学习态并压低稳定度，10 分钟后重试
		newState = StateLearning
		newStep = 1
		newStability = math.Max(0.05, stability*0.5)
		newDifficulty = math.Min(maxDifficulty, difficulty+0.03)
		nextDue = now.Add(10 * time.Minute)

	case RatingHard:
		// 勉强想起：小幅增益，数小时内再看
		newState = StateReview
		newStep = step + 1
		base := stability
		if base == 0 {
			base = 0.1
		}
		newStability = base * 1.2
		newDifficulty = math.Min(maxDifficulty, difficulty+0.01)
		nextDue = now.Add(6 * time.Hour)

	case RatingGood:
		// 正常进度：增益与距上次复习的间隔成正比
		newState = StateReview
		newStep = step + 1
		factor := 2.0 + math.Min(elapsed/86400.0, 5.0)
		newStability = math.Max(0.1, stability*factor)
		newDifficulty = math.Max(minDifficulty, difficulty-0.01)
		intervalDays := int(math.Round(newStability * 1.5))
		if intervalDays < 1 {
			intervalDays = 1
		}
		nextDue = now.Add(time.Duration(intervalDays) * 24 * time.Hour)

	default: // RatingEasy
		newState = StateMature
		newStep = step + 2
		newStability = math.Max(0.2, stability*3.0)
		newDifficulty = math.Max(minDifficulty, difficulty-0.02)
		intervalDays := int(math.Round(newStability * 2.0))
		if intervalDays < 2 {
			intervalDays = 2
		}
		nextDue = now.Add(time.Duration(intervalDays) * 24 * time.Hour)
	}

	updated.State = newState
	updated.Step = &newStep
	updated.Stability = &newStability
	updated.Difficulty = &newDifficulty
	due := ToZone(nextDue, s.loc)
	updated.Due = &due
	last := now
	updated.LastReview = &last

	log := ReviewLog{
		Rating:         rating,
		ReviewedAt:     now,
		Duration:       duration,
		PrevStability:  stability,
		NewStability:   newStability,
		PrevDifficulty: difficulty,
		NewDifficulty:  newDifficulty,
		PrevStep:       step,
		NewStep:        newStep,
		PrevState:      card.State,
		NewState:       newState,
		ElapsedSeconds: elapsed,
	}

	return updated, log
}

func clampDifficulty(d float64) float64 {
	return math.Max(minDifficulty, math.Min(maxDifficulty, d))
}
