package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kanjilog/internal/db"
	"github.com/kanjilog/internal/service"
)

type settingsPayload struct {
	Theme           *string `json:"theme"`
	DailySRSLimit   *int    `json:"daily_srs_limit"`
	ShowKanjiOnHome *bool   `json:"show_kanji_on_home"`
	Timezone        *string `json:"timezone"`
}

type aiSettingsPayload struct {
	AIProvider       string `json:"ai_provider"`
	OpenAIAPIKey     string `json:"openai_api_key"`
	OpenRouterAPIKey string `json:"openrouter_api_key"`
	AIStoryPrompt    string `json:"ai_story_prompt"`
}

type aiTestPayload struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
}

// GetSettings 返回当前用户的学习设置
func (a *API) GetSettings(c *gin.Context) {
	settings, err := a.settings.Get(currentUserID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取设置失败")
		return
	}
	respondOK(c, "", settingsToPayload(settings))
}

// UpdateSettings 更新学习设置；调大每日上限会同步扩容今日队列
func (a *API) UpdateSettings(c *gin.Context) {
	var payload settingsPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	settings, err := a.settings.Update(currentUserID(c), service.SettingsInput{
		Theme:           payload.Theme,
		DailySRSLimit:   payload.DailySRSLimit,
		ShowKanjiOnHome: payload.ShowKanjiOnHome,
		Timezone:        payload.Timezone,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDailyLimit):
			respondError(c, http.StatusBadRequest, "每日上限必须为正数")
		case errors.Is(err, service.ErrInvalidTimezone):
			respondError(c, http.StatusBadRequest, "无效的时区")
		default:
			respondError(c, http.StatusInternalServerError, "更新设置失败")
		}
		return
	}

	respondOK(c, "设置已更新", settingsToPayload(settings))
}

// GetAISettings 返回系统级 AI 配置（管理端）
func (a *API) GetAISettings(c *gin.Context) {
	settings, err := a.system.GetSettings()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取系统设置失败")
		return
	}
	respondOK(c, "", gin.H{
		"ai_provider":        settings.AIProvider,
		"openai_api_key":     settings.OpenAIAPIKey,
		"openrouter_api_key": settings.OpenRouterAPIKey,
		"ai_story_prompt":    settings.AIStoryPrompt,
	})
}

// UpdateAISettings 保存系统级 AI 配置（管理端）
func (a *API) UpdateAISettings(c *gin.Context) {
	var payload aiSettingsPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	saved, err := a.system.UpdateSettings(service.SystemSettingsInput{
		AIProvider:       payload.AIProvider,
		OpenAIAPIKey:     payload.OpenAIAPIKey,
		OpenRouterAPIKey: payload.OpenRouterAPIKey,
		AIStoryPrompt:    payload.AIStoryPrompt,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "保存系统设置失败")
		return
	}

	respondOK(c, "系统设置已保存", gin.H{"ai_provider": saved.AIProvider})
}

// TestAIConnection 验证 AI 平台 API Key 的有效性（管理端）
func (a *API) TestAIConnection(c *gin.Context) {
	var payload aiTestPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	if err := a.system.TestAIConnection(c.Request.Context(), payload.Provider, payload.APIKey); err != nil {
		if errors.Is(err, service.ErrAIAPIKeyMissing) {
			respondError(c, http.StatusBadRequest, "请先填写 API Key")
			return
		}
		respondError(c, http.StatusBadGateway, err.Error())
		return
	}

	respondOK(c, "连接正常", nil)
}

func settingsToPayload(settings *db.UserSettings) gin.H {
	return gin.H{
		"theme":              settings.Theme,
		"daily_srs_limit":    settings.DailySRSLimit,
		"show_kanji_on_home": settings.ShowKanjiOnHome,
	}
}
