package srs

import "time"

// Card 是调度器使用的轻量卡片快照
// Step/Stability/Difficulty/Due/LastReview 在首次复习前均可能为空，
// 因此使用指针区分"未复习过"和"值为零"
// 约定：所有时间字段都以用户时区表示
type Card struct {
	ID         uint
	State      State
	Step       *int
	Stability  *float64
	Difficulty *float64
	Due        *time.Time
	LastReview *time.Time
}

// Clone 返回卡片的深拷贝，调度器保证不修改调用方的输入
func (c Card) Clone() Card {
	out := Card{ID: c.ID, State: c.State}
	if c.Step != nil {
		v := *c.Step
		out.Step = &v
	}
	if c.Stability != nil {
		v := *c.Stability
		out.Stability = &v
	}
	if c.Difficulty != nil {
		v := *c.Difficulty
		out.Difficulty = &v
	}
	if c.Due != nil {
		v := *c.Due
		out.Due = &v
	}
	if c.LastReview != nil {
		v := *c.LastReview
		out.LastReview = &v
	}
	return out
}

// ReviewLog 记录一次复习事件的完整快照，只增不改
// 前后两组数值用于审计与进度统计回放
type ReviewLog struct {
	Rating         Rating
	ReviewedAt     time.Time
	Duration       *float64
	PrevStability  float64
	NewStability   float64
	PrevDifficulty float64
	NewDifficulty  float64
	PrevStep       int
	NewStep        int
	PrevState      State
	NewState       State
	ElapsedSeconds float64
}
