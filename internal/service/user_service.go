package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kanjilog/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound 在指定用户不存在时返回
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken 在用户名已被占用时返回
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidCredentials 在用户名或密码不匹配时返回
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidTimezone 在 IANA 时区名无法解析时返回
	ErrInvalidTimezone = errors.New("invalid timezone")
)

// UserService 负责账号注册、登录校验与时区解析
type UserService struct {
	db *gorm.DB
}

// NewUserService 构造 UserService
func NewUserService(gdb *gorm.DB) *UserService {
	return &UserService{db: gdb}
}

// RegisterInput 定义注册时可配置字段
type RegisterInput struct {
	Username  string
	Password  string
	Birthdate *time.Time
	Timezone  string
}

// Register 创建新账号并附带默认学习设置
// 时区为空时按 UTC 处理；非法时区直接拒绝，避免之后每次调度都失败
func (s *UserService) Register(input RegisterInput) (*db.User, error) {
	username := strings.TrimSpace(input.Username)
	password := strings.TrimSpace(input.Password)
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	timezone := strings.TrimSpace(input.Timezone)
	if timezone != "" {
		if _, err := time.LoadLocation(timezone); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidTimezone, timezone)
		}
	}

	var count int64
	if err := s.db.Model(&db.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := db.User{
		Username:  username,
		Password:  string(hashed),
		Birthdate: input.Birthdate,
		Timezone:  timezone,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		settings := db.UserSettings{UserID: user.ID, Theme: "system", DailySRSLimit: 10, ShowKanjiOnHome: true}
		if err := tx.Create(&settings).Error; err != nil {
			return fmt.Errorf("create default settings: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// Authenticate 校验用户名与密码，成功时返回用户
func (s *UserService) Authenticate(username, password string) (*db.User, error) {
	var user db.User
	if err := s.db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

// Get 根据 ID 获取用户
func (s *UserService) Get(id uuid.UUID) (*db.User, error) {
	var user db.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// TimezoneFor 解析用户时区；为空或无法加载时回退到 UTC
func (s *UserService) TimezoneFor(id uuid.UUID) *time.Location {
	var user db.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		return time.UTC
	}

	name := strings.TrimSpace(user.Timezone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
