package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kanjilog/internal/db"
	"github.com/kanjilog/internal/service"
)

type generateStoryPayload struct {
	Kanji   string `json:"kanji"`
	Refresh bool   `json:"refresh"`
}

// GenerateStory 为某汉字生成（或复用）记忆故事
func (a *API) GenerateStory(c *gin.Context) {
	var payload generateStoryPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	result, err := a.stories.Generate(c.Request.Context(), currentUserID(c), payload.Kanji, payload.Refresh)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidKanji):
			respondError(c, http.StatusBadRequest, "汉字不能为空")
		case errors.Is(err, service.ErrAIAPIKeyMissing):
			respondError(c, http.StatusBadRequest, "请先在系统设置中配置 AI API Key")
		default:
			respondError(c, http.StatusBadGateway, "生成故事失败")
		}
		return
	}

	respondOK(c, "", gin.H{
		"story":     storyToPayload(*result.Story),
		"html":      result.HTML,
		"generated": result.Generated,
	})
}

// GetStory 返回某汉字最新的故事
func (a *API) GetStory(c *gin.Context) {
	kanji := c.Param("kanji")
	story, err := a.stories.Latest(currentUserID(c), kanji)
	if err != nil {
		if errors.Is(err, service.ErrStoryNotFound) {
			respondError(c, http.StatusNotFound, "该汉字还没有故事")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取故事失败")
		return
	}

	respondOK(c, "", gin.H{"story": storyToPayload(*story)})
}

// ListStories 返回当前用户的全部故事
func (a *API) ListStories(c *gin.Context) {
	stories, err := a.stories.List(currentUserID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取故事列表失败")
		return
	}

	items := make([]gin.H, 0, len(stories))
	for _, s := range stories {
		items = append(items, storyToPayload(s))
	}
	respondOK(c, "", gin.H{"stories": items})
}

func storyToPayload(story db.KanjiStory) gin.H {
	return gin.H{
		"id":         story.ID,
		"kanji":      story.KanjiChar,
		"story":      story.Story,
		"created_at": story.CreatedAt.Format(time.RFC3339),
	}
}
