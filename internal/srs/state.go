package srs

import (
	"errors"
	"fmt"
)

// State 表示一张卡片的记忆阶段
// 数值与历史数据库中的整型保持一致，便于直接迁移
type State int

const (
	StateNew      State = 0
	StateLearning State = 1
	StateReview   State = 2
	StateMature   State = 3
)

// String 返回状态的可读名称
func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateLearning:
		return "learning"
	case StateReview:
		return "review"
	case StateMature:
		return "mature"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Rating 表示学习者对一次复习的自评结果
type Rating int

const (
	RatingAgain Rating = 1
	RatingHard  Rating = 2
	RatingGood  Rating = 3
	RatingEasy  Rating = 4
)

// ErrInvalidRating 在评分超出 1..4 时返回，调度器本身不会收到非法评分
var ErrInvalidRating = errors.New("invalid rating (must be 1..4)")

// ParseRating 校验并转换调用方提交的整型评分
func ParseRating(v int) (Rating, error) {
	if v < int(RatingAgain) || v > int(RatingEasy) {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidRating, v)
	}
	return Rating(v), nil
}

// String 返回评分的可读名称
func (r Rating) String() string {
	switch r {
	case RatingAgain:
		return "again"
	case RatingHard:
		return "hard"
	case RatingGood:
		return "good"
	case RatingEasy:
		return "easy"
	default:
		return fmt.Sprintf("rating(%d)", int(r))
	}
}
