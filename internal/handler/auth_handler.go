package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kanjilog/internal/service"
)

const sessionUserIDKey = "user_id"

type registerPayload struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Birthdate string `json:"birthdate"` // 2006-01-02，可选
	Timezone  string `json:"timezone"`  // IANA 名称，可选
}

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register 注册新账号并直接建立会话
func (a *API) Register(c *gin.Context) {
	var payload registerPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	var birthdate *time.Time
	if payload.Birthdate != "" {
		parsed, err := time.Parse("2006-01-02", payload.Birthdate)
		if err != nil {
			respondError(c, http.StatusBadRequest, "无效的出生日期")
			return
		}
		birthdate = &parsed
	}

	user, err := a.users.Register(service.RegisterInput{
		Username:  payload.Username,
		Password:  payload.Password,
		Birthdate: birthdate,
		Timezone:  payload.Timezone,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameTaken):
			respondError(c, http.StatusConflict, "用户名已被占用")
		case errors.Is(err, service.ErrInvalidTimezone):
			respondError(c, http.StatusBadRequest, "无效的时区")
		default:
			respondError(c, http.StatusBadRequest, "注册失败")
		}
		return
	}

	if err := establishSession(c, user.ID); err != nil {
		respondError(c, http.StatusInternalServerError, "会话保存失败")
		return
	}

	respondOK(c, "注册成功", gin.H{
		"id":       user.ID,
		"username": user.Username,
		"timezone": user.Timezone,
	})
}

// Login 校验凭据并建立会话
func (a *API) Login(c *gin.Context) {
	var payload loginPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	user, err := a.users.Authenticate(payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, "用户名或密码错误")
			return
		}
		respondError(c, http.StatusInternalServerError, "登录失败")
		return
	}

	if err := establishSession(c, user.ID); err != nil {
		respondError(c, http.StatusInternalServerError, "会话保存失败")
		return
	}

	respondOK(c, "登录成功", gin.H{
		"id":       user.ID,
		"username": user.Username,
		"timezone": user.Timezone,
		"role":     user.Role,
	})
}

// Logout 清除会话
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	respondOK(c, "已退出登录", nil)
}

// Me 返回当前登录用户
func (a *API) Me(c *gin.Context) {
	userID := currentUserID(c)
	user, err := a.users.Get(userID)
	if err != nil {
		respondError(c, http.StatusNotFound, "用户不存在")
		return
	}
	respondOK(c, "", gin.H{
		"id":       user.ID,
		"username": user.Username,
		"timezone": user.Timezone,
		"role":     user.Role,
	})
}

// 会话里只存字符串形式的 UUID，避免 cookie 编码注册自定义类型
func establishSession(c *gin.Context, userID uuid.UUID) error {
	session := sessions.Default(c)
	session.Set(sessionUserIDKey, userID.String())
	return session.Save()
}

// AuthRequired 是一个简单的认证中间件
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		raw := session.Get(sessionUserIDKey)
		value, ok := raw.(string)
		if !ok {
			respondError(c, http.StatusUnauthorized, "请先登录")
			c.Abort()
			return
		}
		userID, err := uuid.Parse(value)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "请先登录")
			c.Abort()
			return
		}
		c.Set(sessionUserIDKey, userID)
		c.Next()
	}
}

// AdminRequired 要求当前用户具备 admin 角色，必须放在 AuthRequired 之后
func (a *API) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := a.users.Get(currentUserID(c))
		if err != nil || user.Role != "admin" {
			respondError(c, http.StatusForbidden, "无权访问")
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentUserID(c *gin.Context) uuid.UUID {
	if value, exists := c.Get(sessionUserIDKey); exists {
		if id, ok := value.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
