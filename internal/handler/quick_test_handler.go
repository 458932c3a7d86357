package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kanjilog/internal/db"
	"github.com/kanjilog/internal/service"
)

type startQuickTestPayload struct {
	QuestionLimit int `json:"question_limit"`
}

type answerQuickTestPayload struct {
	ChosenMeaning string `json:"chosen_meaning"`
}

// StartQuickTest 开始（或返回进行中的）字义测验
func (a *API) StartQuickTest(c *gin.Context) {
	var payload startQuickTestPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	test, err := a.quickTests.Start(currentUserID(c), payload.QuestionLimit)
	if err != nil {
		if errors.Is(err, service.ErrNotEnoughKanji) {
			respondError(c, http.StatusBadRequest, "可出题的汉字不足")
			return
		}
		respondError(c, http.StatusInternalServerError, "开始测验失败")
		return
	}

	respondOK(c, "", quickTestToPayload(test, false))
}

// GetQuickTest 返回进行中的测验与当前题目
func (a *API) GetQuickTest(c *gin.Context) {
	test, err := a.quickTests.Active(currentUserID(c))
	if err != nil {
		if errors.Is(err, service.ErrNoActiveQuickTest) {
			respondError(c, http.StatusNotFound, "没有进行中的测验")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取测验失败")
		return
	}

	respondOK(c, "", quickTestToPayload(test, false))
}

// AnswerQuickTest 提交当前题目的答案
func (a *API) AnswerQuickTest(c *gin.Context) {
	var payload answerQuickTestPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	test, err := a.quickTests.Answer(currentUserID(c), payload.ChosenMeaning)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoActiveQuickTest):
			respondError(c, http.StatusNotFound, "没有进行中的测验")
		case errors.Is(err, service.ErrInvalidChoice):
			respondError(c, http.StatusBadRequest, "选项不在候选范围内")
		case errors.Is(err, service.ErrQuickTestComplete):
			respondError(c, http.StatusBadRequest, "测验已完成")
		default:
			respondError(c, http.StatusInternalServerError, "提交答案失败")
		}
		return
	}

	// 已完成的测验连同逐题对错一起返回
	respondOK(c, "", quickTestToPayload(test, test.State == db.QuickTestComplete))
}

// GetQuickTestHistory 返回已完成的测验记录
func (a *API) GetQuickTestHistory(c *gin.Context) {
	tests, err := a.quickTests.History(currentUserID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取测验历史失败")
		return
	}

	items := make([]gin.H, 0, len(tests))
	for i := range tests {
		items = append(items, quickTestToPayload(&tests[i], true))
	}
	respondOK(c, "", gin.H{"tests": items})
}

// quickTestToPayload 序列化测验；revealAnswers 为 false 时隐藏正确释义
func quickTestToPayload(test *db.QuickTest, revealAnswers bool) gin.H {
	questions := make([]gin.H, 0, len(test.Questions))
	for _, q := range test.Questions {
		item := gin.H{
			"kanji":   q.KanjiChar,
			"options": []string{q.OptionA, q.OptionB, q.OptionC, q.OptionD},
		}
		if revealAnswers {
			item["correct_meaning"] = q.CorrectMeaning
			item["chosen_meaning"] = q.ChosenMeaning
			item["is_correct"] = q.IsCorrect
		}
		questions = append(questions, item)
	}

	return gin.H{
		"id":             test.ID,
		"state":          test.State,
		"question_limit": test.QuestionLimit,
		"current":        test.Current,
		"correct_count":  test.CorrectCount,
		"wrong_count":    test.WrongCount,
		"questions":      questions,
	}
}
