package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/kanjilog/internal/handler"
)

// Options 控制路由装配时的可变项
type Options struct {
	SessionSecret string
	CORSOrigins   []string
	SecureCookies bool
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) *gin.Engine {
	r := gin.Default()

	secret := opts.SessionSecret
	if secret == "" {
		secret = "kanjilog-dev-secret"
	}
	store := cookie.NewStore([]byte(secret))
	// gorilla/sessions 默认 Secure+SameSite=None，纯 HTTP 部署下浏览器不会回传
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("kanjilog_session", store))

	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	auth := r.Group("/auth")
	{
		auth.POST("/register", api.Register)
		auth.POST("/login", api.Login)
		auth.POST("/logout", api.Logout)
	}

	// 需要登录的业务路由
	authed := r.Group("")
	authed.Use(handler.AuthRequired())
	{
		authed.GET("/auth/me", api.Me)

		fsrs := authed.Group("/fsrs")
		{
			fsrs.POST("/create-card", api.CreateCard)
			fsrs.POST("/get-intervals", api.GetIntervals)
			fsrs.POST("/review-card", api.ReviewCard)
			fsrs.GET("/get-today-cards", api.GetTodayCards)
			fsrs.POST("/increment-kanji-count", api.IncrementKanjiCount)
		}

		progress := authed.Group("/progress")
		{
			progress.GET("/pie", api.GetPie)
			progress.GET("/line", api.GetLine)
			progress.GET("/learned-count", api.GetLearnedCount)
			progress.GET("/jlpt", api.GetJLPTBuckets)
		}

		authed.GET("/settings", api.GetSettings)
		authed.POST("/settings", api.UpdateSettings)
		authed.PUT("/settings", api.UpdateSettings)

		authed.GET("/preferences", api.GetPreferences)
		authed.POST("/preferences", api.SavePreferences)

		authed.POST("/stories", api.GenerateStory)
		authed.GET("/stories", api.ListStories)
		authed.GET("/stories/:kanji", api.GetStory)

		quick := authed.Group("/quick-test")
		{
			quick.GET("", api.GetQuickTest)
			quick.POST("/start", api.StartQuickTest)
			quick.POST("/answer", api.AnswerQuickTest)
			quick.GET("/history", api.GetQuickTestHistory)
		}

		// 管理端路由
		admin := authed.Group("/admin")
		admin.Use(api.AdminRequired())
		{
			admin.GET("/progress/jlpt/all", api.GetAllUsersProgress)
			admin.GET("/ai-settings", api.GetAISettings)
			admin.POST("/ai-settings", api.UpdateAISettings)
			admin.POST("/ai-settings/test", api.TestAIConnection)
		}
	}

	return r
}
