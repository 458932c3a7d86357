package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondOK 以统一信封 {status, message, result} 返回成功结果
func respondOK(c *gin.Context, message string, result interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": message,
		"result":  result,
	})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"status":  "error",
		"message": message,
		"result":  nil,
	})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}
