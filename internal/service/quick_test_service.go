package service

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kanjilog/internal/db"
	"github.com/kanjilog/internal/kanjidex"
	"gorm.io/gorm"
)

var (
	// ErrNoActiveQuickTest 在用户没有进行中的测验时返回
	ErrNoActiveQuickTest = errors.New("no quick test in progress")
	// ErrQuickTestComplete 在对已完成的测验继续作答时返回
	ErrQuickTestComplete = errors.New("quick test already complete")
	// ErrNotEnoughKanji 在可出题的汉字不足时返回
	ErrNotEnoughKanji = errors.New("not enough kanji to build a quick test")
	// ErrInvalidChoice 在提交的选项不在四个候选内时返回
	ErrInvalidChoice = errors.New("chosen meaning is not one of the options")
)

// 一道题固定四个选项，出题至少需要这么多互不相同的释义
const quickTestOptionCount = 4

// QuickTestService 负责"字义四选一"快速测验
// 题目取自用户已建卡且字典里有释义的汉字，干扰项从整本字典抽取
type QuickTestService struct {
	db   *gorm.DB
	rand *rand.Rand
}

// NewQuickTestService 构造 QuickTestService
func NewQuickTestService(gdb *gorm.DB) *QuickTestService {
	return &QuickTestService{
		db:   gdb,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetSeed 固定随机种子，仅用于测试
func (s *QuickTestService) SetSeed(seed int64) {
	s.rand = rand.New(rand.NewSource(seed))
}

// Start 开始一次新测验；已有进行中的测验时直接返回它
func (s *QuickTestService) Start(userID uuid.UUID, questionLimit int) (*db.QuickTest, error) {
	if questionLimit <= 0 {
		questionLimit = 10
	}

	if active, err := s.Active(userID); err == nil {
		return active, nil
	} else if !errors.Is(err, ErrNoActiveQuickTest) {
		return nil, err
	}

	var cards []db.Card
	if err := s.db.Where("user_id = ?", userID).Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("load cards: %w", err)
	}

	type questionSeed struct {
		kanji   string
		meaning string
	}
	seeds := make([]questionSeed, 0, len(cards))
	for _, c := range cards {
		entry, ok := kanjidex.Lookup(c.KanjiChar)
		if !ok || strings.TrimSpace(entry.Meaning) == "" {
			continue
		}
		seeds = append(seeds, questionSeed{kanji: c.KanjiChar, meaning: entry.Meaning})
	}
	if len(seeds) == 0 {
		return nil, ErrNotEnoughKanji
	}

	s.rand.Shuffle(len(seeds), func(i, j int) { seeds[i], seeds[j] = seeds[j], seeds[i] })
	if questionLimit > len(seeds) {
		questionLimit = len(seeds)
	}
	seeds = seeds[:questionLimit]

	test := db.QuickTest{
		UserID:        userID,
		State:         db.QuickTestInProgress,
		QuestionLimit: questionLimit,
		StartTime:     time.Now().UTC(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&test).Error; err != nil {
			return fmt.Errorf("create quick test: %w", err)
		}
		for _, seed := range seeds {
			options, err := s.buildOptions(seed.meaning)
			if err != nil {
				return err
			}
			question := db.QuickTestQuestion{
				QuickTestID:    test.ID,
				KanjiChar:      seed.kanji,
				CorrectMeaning: seed.meaning,
				OptionA:        options[0],
				OptionB:        options[1],
				OptionC:        options[2],
				OptionD:        options[3],
			}
			if err := tx.Create(&question).Error; err != nil {
				return fmt.Errorf("create question: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Active(userID)
}

// buildOptions 生成四个选项：正确释义加三个字典干扰项，随机排列
func (s *QuickTestService) buildOptions(correct string) ([]string, error) {
	pool := make([]string, 0, len(kanjidex.All()))
	seen := map[string]struct{}{correct: {}}
	for _, entry := range kanjidex.All() {
		meaning := strings.TrimSpace(entry.Meaning)
		if meaning == "" {
			continue
		}
		if _, dup := seen[meaning]; dup {
			continue
		}
		seen[meaning] = struct{}{}
		pool = append(pool, meaning)
	}
	if len(pool) < quickTestOptionCount-1 {
		return nil, ErrNotEnoughKanji
	}

	s.rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	options := append([]string{correct}, pool[:quickTestOptionCount-1]...)
	s.rand.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	return options, nil
}

// Active 返回进行中的测验及其题目
func (s *QuickTestService) Active(userID uuid.UUID) (*db.QuickTest, error) {
	var test db.QuickTest
	if err := s.db.Preload("Questions").
		Where("user_id = ? AND state = ?", userID, db.QuickTestInProgress).
		Order("created_at DESC").
		First(&test).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveQuickTest
		}
		return nil, fmt.Errorf("load quick test: %w", err)
	}
	return &test, nil
}

// CurrentQuestion 返回进行中测验的当前题目
func (s *QuickTestService) CurrentQuestion(userID uuid.UUID) (*db.QuickTestQuestion, error) {
	test, err := s.Active(userID)
	if err != nil {
		return nil, err
	}
	if test.Current >= len(test.Questions) {
		return nil, ErrQuickTestComplete
	}
	question := test.Questions[test.Current]
	return &question, nil
}

// Answer 提交当前题的答案并推进进度；答完最后一题时测验收束为完成态
func (s *QuickTestService) Answer(userID uuid.UUID, chosenMeaning string) (*db.QuickTest, error) {
	test, err := s.Active(userID)
	if err != nil {
		return nil, err
	}
	if test.Current >= len(test.Questions) {
		return nil, ErrQuickTestComplete
	}

	question := test.Questions[test.Current]
	chosen := strings.TrimSpace(chosenMeaning)
	if chosen != question.OptionA && chosen != question.OptionB &&
		chosen != question.OptionC && chosen != question.OptionD {
		return nil, ErrInvalidChoice
	}

	correct := chosen == question.CorrectMeaning

	err = s.db.Transaction(func(tx *gorm.DB) error {
		question.ChosenMeaning = &chosen
		question.IsCorrect = &correct
		if err := tx.Save(&question).Error; err != nil {
			return fmt.Errorf("save answer: %w", err)
		}

		test.Current++
		if correct {
			test.CorrectCount++
		} else {
			test.WrongCount++
		}
		if test.Current >= len(test.Questions) {
			test.State = db.QuickTestComplete
		}
		if err := tx.Omit("Questions").Save(test).Error; err != nil {
			return fmt.Errorf("save quick test: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var reloaded db.QuickTest
	if err := s.db.Preload("Questions").First(&reloaded, test.ID).Error; err != nil {
		return nil, fmt.Errorf("reload quick test: %w", err)
	}
	return &reloaded, nil
}

// History 返回用户已完成的测验，按时间倒序
func (s *QuickTestService) History(userID uuid.UUID) ([]db.QuickTest, error) {
	var tests []db.QuickTest
	if err := s.db.Preload("Questions").
		Where("user_id = ? AND state = ?", userID, db.QuickTestComplete).
		Order("created_at DESC").
		Find(&tests).Error; err != nil {
		return nil, fmt.Errorf("list quick tests: %w", err)
	}
	return tests, nil
}
