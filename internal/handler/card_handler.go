package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kanjilog/internal/db"
	"github.com/kanjilog/internal/service"
	"github.com/kanjilog/internal/srs"
)

type createCardPayload struct {
	Kanji string `json:"kanji"`
}

type cardRefPayload struct {
	CardID uint `json:"card_id"`
}

type reviewCardPayload struct {
	CardID         uint     `json:"card_id"`
	Rating         int      `json:"rating"`
	ReviewDuration *float64 `json:"review_duration"`
	WriteTimeSec   *float64 `json:"write_time_sec"`
	StrokeErrors   *int     `json:"stroke_errors"`
}

type increaseKanjiPayload struct {
	AddCount int `json:"add_count"`
}

// CreateCard 为当前用户创建一张汉字卡片
func (a *API) CreateCard(c *gin.Context) {
	var payload createCardPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	card, err := a.cards.Create(currentUserID(c), payload.Kanji)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCardExists):
			respondError(c, http.StatusConflict, "该汉字已有卡片")
		case errors.Is(err, service.ErrInvalidKanji):
			respondError(c, http.StatusBadRequest, "汉字不能为空")
		default:
			respondError(c, http.StatusInternalServerError, "创建卡片失败")
		}
		return
	}

	respondOK(c, "卡片已创建", gin.H{"card": cardToPayload(*card)})
}

// GetIntervals 返回四种评分各自的下次到期预览
func (a *API) GetIntervals(c *gin.Context) {
	var payload cardRefPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	previews, err := a.cards.Intervals(currentUserID(c), payload.CardID)
	if err != nil {
		if errors.Is(err, service.ErrCardNotFound) {
			respondError(c, http.StatusNotFound, "卡片不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取间隔预览失败")
		return
	}

	items := make([]gin.H, 0, len(previews))
	for _, p := range previews {
		items = append(items, gin.H{
			"rating":   p.Rating,
			"label":    p.Label,
			"due":      p.Due.Format(time.RFC3339),
			"humanize": p.Humanize,
		})
	}
	respondOK(c, "", gin.H{"intervals": items})
}

// ReviewCard 提交一次复习
func (a *API) ReviewCard(c *gin.Context) {
	var payload reviewCardPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	result, err := a.cards.Review(currentUserID(c), payload.CardID, service.ReviewInput{
		Rating:         payload.Rating,
		ReviewDuration: payload.ReviewDuration,
		WriteTimeSec:   payload.WriteTimeSec,
		StrokeErrors:   payload.StrokeErrors,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCardNotFound):
			respondError(c, http.StatusNotFound, "卡片不存在")
		case errors.Is(err, srs.ErrInvalidRating):
			respondError(c, http.StatusBadRequest, "无效的评分")
		default:
			respondError(c, http.StatusInternalServerError, "提交复习失败")
		}
		return
	}

	respondOK(c, "复习已记录", gin.H{
		"card": cardToPayload(*result.Card),
		"log": gin.H{
			"rating":          result.Log.Rating,
			"review_datetime": result.Log.ReviewDatetime.Format(time.RFC3339),
			"prev_state":      result.Log.PrevState,
			"new_state":       result.Log.NewState,
			"prev_stability":  result.Log.PrevStability,
			"new_stability":   result.Log.NewStability,
			"elapsed_seconds": result.Log.ElapsedSeconds,
		},
	})
}

// GetTodayCards 返回当日复习队列，首次访问时构建
func (a *API) GetTodayCards(c *gin.Context) {
	today, err := a.queue.TodayCards(currentUserID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取今日队列失败")
		return
	}
	respondOK(c, "", todayQueueToPayload(today))
}

// IncrementKanjiCount 向今日队列追加卡片
func (a *API) IncrementKanjiCount(c *gin.Context) {
	var payload increaseKanjiPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}
	if payload.AddCount <= 0 {
		payload.AddCount = 1
	}

	today, err := a.queue.IncreaseDailyKanji(currentUserID(c), payload.AddCount)
	if err != nil {
		if errors.Is(err, service.ErrNothingToAdd) {
			respondError(c, http.StatusBadRequest, "没有可加入队列的卡片")
			return
		}
		respondError(c, http.StatusInternalServerError, "扩容今日队列失败")
		return
	}

	respondOK(c, "今日队列已扩容", todayQueueToPayload(today))
}

func cardToPayload(card db.Card) gin.H {
	item := gin.H{
		"id":         card.ID,
		"kanji":      card.KanjiChar,
		"state":      card.State,
		"step":       card.Step,
		"stability":  card.Stability,
		"difficulty": card.Difficulty,
	}
	if card.Due != nil {
		item["due"] = card.Due.Format(time.RFC3339)
	}
	if card.LastReview != nil {
		item["last_review"] = card.LastReview.Format(time.RFC3339)
	}
	return item
}

func todayQueueToPayload(today *service.TodayQueue) gin.H {
	serialize := func(cards []db.Card) []gin.H {
		items := make([]gin.H, 0, len(cards))
		for _, card := range cards {
			items = append(items, cardToPayload(card))
		}
		return items
	}

	return gin.H{
		"progress_date":  today.ProgressDate.Format("2006-01-02"),
		"kanji_count":    today.KanjiCount,
		"reviewed_count": today.ReviewedCount,
		"completed":      today.Completed,
		"todays_cards":   serialize(today.TodaysCards),
		"reviewed_cards": serialize(today.ReviewedCards),
	}
}
