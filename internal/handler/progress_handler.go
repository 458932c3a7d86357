package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetPie 返回已学会/剩余的饼图数据
func (a *API) GetPie(c *gin.Context) {
	pie, err := a.progress.Pie(currentUserID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取进度统计失败")
		return
	}
	respondOK(c, "", pie)
}

// GetLine 返回按日历日分组的学习曲线
func (a *API) GetLine(c *gin.Context) {
	points, err := a.progress.LineChart(currentUserID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取学习曲线失败")
		return
	}
	respondOK(c, "", gin.H{"points": points})
}

// GetLearnedCount 返回已学会的汉字数量
func (a *API) GetLearnedCount(c *gin.Context) {
	count, err := a.progress.LearnedCount(currentUserID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取学习数量失败")
		return
	}
	respondOK(c, "", gin.H{"learned": count})
}

// GetJLPTBuckets 返回已学会汉字按 JLPT 等级的分桶
func (a *API) GetJLPTBuckets(c *gin.Context) {
	buckets, err := a.progress.ByJLPT(currentUserID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取 JLPT 分布失败")
		return
	}
	respondOK(c, "", buckets)
}

// GetAllUsersProgress 返回全部用户的学习总览（管理端）
func (a *API) GetAllUsersProgress(c *gin.Context) {
	summaries, err := a.progress.AllUsers()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取用户总览失败")
		return
	}
	respondOK(c, "", gin.H{"users": summaries})
}
