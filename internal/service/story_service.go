package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kanjilog/internal/db"
	"github.com/kanjilog/internal/kanjidex"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"gorm.io/gorm"
)

// ErrStoryNotFound 在指定汉字没有故事时返回
var ErrStoryNotFound = errors.New("story not found")

const (
	defaultOpenAIStoryModel     = "gpt-4o-mini"
	defaultOpenRouterStoryModel = "openai/gpt-4o-mini"
	defaultStoryMaxTokens       = 400
	defaultStoryTemperature     = 0.8
)

// 未配置系统提示词时使用的缺省值，风格参考海式记忆法
const defaultStorySystemPrompt = "You are a mnemonic storyteller in the style of Heisig's " +
	"\"Remembering the Kanji\". Given a kanji, its meaning, and the learner's interests, " +
	"write a short vivid story (3-5 sentences, Markdown) that anchors the kanji's meaning " +
	"to a memorable scene. Weave in the learner's interests naturally. Do not explain the " +
	"mnemonic technique; just tell the story."

var (
	storyMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	storySanitizer = bluemonday.UGCPolicy()
)

// StoryService 基于大模型为汉字生成记忆故事并持久化
type StoryService struct {
	db          *gorm.DB
	client      *aiChatClient
	preferences *PreferenceService
}

// NewStoryService 构造默认的 StoryService
func NewStoryService(gdb *gorm.DB, settings *SystemSettingService, preferences *PreferenceService) *StoryService {
	return &StoryService{
		db:          gdb,
		client:      newAIChatClient(settings, defaultOpenAIStoryModel, defaultOpenRouterStoryModel),
		preferences: preferences,
	}
}

// SetHTTPClient 覆盖默认 HTTP 客户端，主要用于测试
func (s *StoryService) SetHTTPClient(client httpDoer) {
	s.client.SetHTTPClient(client)
}

// SetOpenAIBaseURL 覆盖默认的 OpenAI API 地址
func (s *StoryService) SetOpenAIBaseURL(base string) {
	s.client.SetOpenAIBaseURL(base)
}

// SetOpenRouterBaseURL 覆盖默认的 OpenRouter API 地址
func (s *StoryService) SetOpenRouterBaseURL(base string) {
	s.client.SetOpenRouterBaseURL(base)
}

// SetOpenAIModel 指定 OpenAI 故事生成所使用的模型名称
func (s *StoryService) SetOpenAIModel(model string) {
	s.client.SetOpenAIModel(model)
}

// SetOpenRouterModel 指定 OpenRouter 故事生成所使用的模型名称
func (s *StoryService) SetOpenRouterModel(model string) {
	s.client.SetOpenRouterModel(model)
}

// StoryResult 返回生成的故事原文与净化后的 HTML
type StoryResult struct {
	Story     *db.KanjiStory
	HTML      string
	Generated bool
}

// Generate 为某汉字生成记忆故事；已有故事且未要求刷新时直接返回
// 提示词取材于用户的问卷偏好与字典释义，未配置 API Key 时返回 ErrAIAPIKeyMissing
func (s *StoryService) Generate(ctx context.Context, userID uuid.UUID, kanjiChar string, refresh bool) (*StoryResult, error) {
	kanji := strings.TrimSpace(kanjiChar)
	if kanji == "" {
		return nil, ErrInvalidKanji
	}

	if !refresh {
		if existing, err := s.Latest(userID, kanji); err == nil {
			return &StoryResult{Story: existing, HTML: renderStoryHTML(existing.Story), Generated: false}, nil
		} else if !errors.Is(err, ErrStoryNotFound) {
			return nil, err
		}
	}

	interests, err := s.preferences.SelectedInterests(userID)
	if err != nil {
		return nil, err
	}

	userPrompt := buildStoryPrompt(kanji, interests)
	logAISnippet("story prompt", userPrompt)

	settings, err := s.client.settings.GetSettings()
	if err != nil {
		return nil, fmt.Errorf("读取系统设置失败: %w", err)
	}

	systemPrompt := strings.TrimSpace(settings.AIStoryPrompt)
	if systemPrompt == "" {
		systemPrompt = defaultStorySystemPrompt
	}

	result, err := s.client.callWithSettings(ctx, settings, aiChatRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		MaxTokens:    defaultStoryMaxTokens,
		Temperature:  defaultStoryTemperature,
	})
	if err != nil {
		return nil, err
	}

	story := strings.TrimSpace(result.Content)
	logAISnippet("story response", story)
	if story == "" {
		return nil, fmt.Errorf("模型未返回故事内容")
	}

	record := db.KanjiStory{UserID: userID, KanjiChar: kanji, Story: story}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("save story: %w", err)
	}

	return &StoryResult{Story: &record, HTML: renderStoryHTML(story), Generated: true}, nil
}

// Latest 返回某汉字最新一条故事
func (s *StoryService) Latest(userID uuid.UUID, kanjiChar string) (*db.KanjiStory, error) {
	var story db.KanjiStory
	if err := s.db.Where("user_id = ? AND kanji_char = ?", userID, strings.TrimSpace(kanjiChar)).
		Order("created_at DESC").
		First(&story).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStoryNotFound
		}
		return nil, fmt.Errorf("get story: %w", err)
	}
	return &story, nil
}

// List 返回用户全部故事，按时间倒序
func (s *StoryService) List(userID uuid.UUID) ([]db.KanjiStory, error) {
	var stories []db.KanjiStory
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&stories).Error; err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	return stories, nil
}

// buildStoryPrompt 组装用户提示词：汉字、字典释义与兴趣关键词
func buildStoryPrompt(kanji string, interests []string) string {
	var builder strings.Builder
	builder.WriteString("Kanji: ")
	builder.WriteString(kanji)
	builder.WriteString("\n")

	if entry, ok := kanjidex.Lookup(kanji); ok {
		builder.WriteString("Meaning: ")
		builder.WriteString(entry.Meaning)
		builder.WriteString("\n")
		if entry.JLPT != "" {
			builder.WriteString("JLPT level: ")
			builder.WriteString(strings.ToUpper(entry.JLPT))
			builder.WriteString("\n")
		}
	}

	if len(interests) > 0 {
		builder.WriteString("Learner interests: ")
		builder.WriteString(strings.Join(interests, ", "))
		builder.WriteString("\n")
	}

	return builder.String()
}

// renderStoryHTML 把 Markdown 故事渲染为净化后的 HTML
func renderStoryHTML(markdown string) string {
	var buf bytes.Buffer
	if err := storyMarkdown.Convert([]byte(markdown), &buf); err != nil {
		return ""
	}
	return storySanitizer.Sanitize(buf.String())
}
