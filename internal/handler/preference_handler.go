package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kanjilog/internal/service"
)

type preferenceAnswersPayload struct {
	Answers []struct {
		QuestionID      uint     `json:"question_id"`
		SelectedOptions []string `json:"selected_options"`
	} `json:"answers"`
}

// GetPreferences 返回问卷题目与当前用户的作答
func (a *API) GetPreferences(c *gin.Context) {
	questions, err := a.preferences.Questions()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取问卷失败")
		return
	}

	answers, err := a.preferences.Answers(currentUserID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取作答失败")
		return
	}

	answered := make(map[uint][]string, len(answers))
	for _, ans := range answers {
		answered[ans.QuestionID] = ans.SelectedOptions
	}

	items := make([]gin.H, 0, len(questions))
	for _, q := range questions {
		items = append(items, gin.H{
			"id":       q.ID,
			"position": q.Position,
			"prompt":   q.Prompt,
			"options":  q.Options,
			"selected": answered[q.ID],
		})
	}

	respondOK(c, "", gin.H{"questions": items})
}

// SavePreferences 批量保存问卷作答
func (a *API) SavePreferences(c *gin.Context) {
	var payload preferenceAnswersPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	answers := make([]service.AnswerInput, 0, len(payload.Answers))
	for _, ans := range payload.Answers {
		answers = append(answers, service.AnswerInput{
			QuestionID:      ans.QuestionID,
			SelectedOptions: ans.SelectedOptions,
		})
	}

	if err := a.preferences.SaveAnswers(currentUserID(c), answers); err != nil {
		if errors.Is(err, service.ErrQuestionNotFound) {
			respondError(c, http.StatusBadRequest, "问卷题目不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "保存作答失败")
		return
	}

	respondOK(c, "偏好已保存", nil)
}
