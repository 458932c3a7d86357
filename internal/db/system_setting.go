package db

import "gorm.io/gorm"

// SystemSetting 存储后台可配置的系统级键值对。
type SystemSetting struct {
	gorm.Model
	Key   string `gorm:"size:100;uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}

// TableName 自定义表名以保持命名一致。
func (SystemSetting) TableName() string {
	return "system_settings"
}

const (
	// SettingKeyAIProvider 表示故事生成所用的 AI 平台（openai/openrouter）。
	SettingKeyAIProvider = "ai_provider"
	// SettingKeyOpenAIAPIKey 表示 OpenAI API Key。
	SettingKeyOpenAIAPIKey = "openai_api_key"
	// SettingKeyOpenRouterAPIKey 表示 OpenRouter API Key。
	SettingKeyOpenRouterAPIKey = "openrouter_api_key"
	// SettingKeyAIStoryPrompt 表示故事生成的系统提示词覆盖。
	SettingKeyAIStoryPrompt = "ai_story_prompt"
)
