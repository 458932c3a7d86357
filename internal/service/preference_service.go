package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kanjilog/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrQuestionNotFound 在问卷题不存在时返回
var ErrQuestionNotFound = errors.New("preference question not found")

// PreferenceService 负责引导问卷与用户偏好
// 偏好会作为故事生成的取材来源
type PreferenceService struct {
	db *gorm.DB
}

// NewPreferenceService 构造 PreferenceService
func NewPreferenceService(gdb *gorm.DB) *PreferenceService {
	return &PreferenceService{db: gdb}
}

// defaultQuestions 是首次启动时播种的问卷内容
var defaultQuestions = []db.PreferenceQuestion{
	{Position: 1, Prompt: "What topics do you enjoy reading about?", Options: db.StringList{"history", "nature", "technology", "food", "sports", "music"}},
	{Position: 2, Prompt: "What kind of stories stick with you?", Options: db.StringList{"funny", "dramatic", "mysterious", "heartwarming"}},
	{Position: 3, Prompt: "Pick settings you find memorable.", Options: db.StringList{"city life", "countryside", "ocean", "mountains", "space"}},
}

// SeedQuestions 在问卷为空时写入默认题目，重复调用无副作用
func (s *PreferenceService) SeedQuestions() error {
	var count int64
	if err := s.db.Model(&db.PreferenceQuestion{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count questions: %w", err)
	}
	if count > 0 {
		return nil
	}

	for i := range defaultQuestions {
		q := defaultQuestions[i]
		if err := s.db.Create(&q).Error; err != nil {
			return fmt.Errorf("seed question: %w", err)
		}
	}
	return nil
}

// Questions 返回问卷题目，按展示顺序排列
func (s *PreferenceService) Questions() ([]db.PreferenceQuestion, error) {
	var questions []db.PreferenceQuestion
	if err := s.db.Order("position ASC").Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

// AnswerInput 是一道题的作答
type AnswerInput struct {
	QuestionID      uint
	SelectedOptions []string
}

// SaveAnswers 批量保存作答：同一 (user, question) 幂等覆盖
func (s *PreferenceService) SaveAnswers(userID uuid.UUID, answers []AnswerInput) error {
	if len(answers) == 0 {
		return nil
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, a := range answers {
			var count int64
			if err := tx.Model(&db.PreferenceQuestion{}).Where("id = ?", a.QuestionID).Count(&count).Error; err != nil {
				return fmt.Errorf("check question: %w", err)
			}
			if count == 0 {
				return fmt.Errorf("%w: %d", ErrQuestionNotFound, a.QuestionID)
			}

			selected := make(db.StringList, 0, len(a.SelectedOptions))
			for _, opt := range a.SelectedOptions {
				if trimmed := strings.TrimSpace(opt); trimmed != "" {
					selected = append(selected, trimmed)
				}
			}

			record := db.UserPreference{
				UserID:          userID,
				QuestionID:      a.QuestionID,
				SelectedOptions: selected,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "question_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"selected_options", "updated_at"}),
			}).Create(&record).Error; err != nil {
				return fmt.Errorf("save answer: %w", err)
			}
		}
		return nil
	})
}

// Answers 返回用户的全部作答
func (s *PreferenceService) Answers(userID uuid.UUID) ([]db.UserPreference, error) {
	var prefs []db.UserPreference
	if err := s.db.Where("user_id = ?", userID).Find(&prefs).Error; err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return prefs, nil
}

// SelectedInterests 把用户所有作答摊平成去重后的关键词列表
func (s *PreferenceService) SelectedInterests(userID uuid.UUID) ([]string, error) {
	prefs, err := s.Answers(userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	interests := make([]string, 0)
	for _, p := range prefs {
		for _, opt := range p.SelectedOptions {
			if _, dup := seen[opt]; dup {
				continue
			}
			seen[opt] = struct{}{}
			interests = append(interests, opt)
		}
	}
	return interests, nil
}
