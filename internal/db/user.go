package db

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User 定义了用户模型
// Timezone 存 IANA 时区名（如 Asia/Tokyo），为空时按 UTC 处理
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username  string    `gorm:"unique;not null"`
	Password  string    `gorm:"not null"`
	Birthdate *time.Time
	Timezone  string `gorm:"size:64"`
	Role      string `gorm:"size:16;default:user"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate 在入库前补全 UUID 主键
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// UserSettings 存储每个用户的学习配置
// DailySRSLimit 是当日复习队列的目标张数。
// 不带软删除：user_id 上有唯一索引，软删后重建会撞索引。
type UserSettings struct {
	ID              uint      `gorm:"primaryKey"`
	UserID          uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	Theme           string    `gorm:"size:16;default:system"`
	DailySRSLimit   int       `gorm:"default:10"`
	ShowKanjiOnHome bool      `gorm:"default:true"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PreferenceQuestion 是引导问卷里的一道多选题
type PreferenceQuestion struct {
	gorm.Model
	Position int        `gorm:"index"`
	Prompt   string     `gorm:"type:text;not null"`
	Options  StringList `gorm:"serializer:json"`
}

// UserPreference 记录用户对某道问卷题的选择，故事生成会从中取材
type UserPreference struct {
	gorm.Model
	UserID          uuid.UUID  `gorm:"type:uuid;index;index:idx_user_pref_unique,unique"`
	QuestionID      uint       `gorm:"index:idx_user_pref_unique,unique"`
	SelectedOptions StringList `gorm:"serializer:json"`
}

// StringList 以 JSON 形式落库的字符串列表
type StringList []string

// EnsureUser 存在性检查：若提供的用户名与密码均非空且不存在对应账号，
// 则创建一个 bcrypt 哈希的管理员账号及默认设置。
func EnsureUser(username, password, timezone string) error {
	trimmedUser := strings.TrimSpace(username)
	trimmedPassword := strings.TrimSpace(password)
	if trimmedUser == "" || trimmedPassword == "" {
		return nil
	}

	if DB == nil {
		return errors.New("database not initialized")
	}

	var existing User
	if err := DB.Where("username = ?", trimmedUser).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(trimmedPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		// 环境变量引导的账号用于管理端，必须带 admin 角色
		user := User{Username: trimmedUser, Password: string(hashed), Role: "admin", Timezone: strings.TrimSpace(timezone)}
		if err := DB.Create(&user).Error; err != nil {
			return err
		}
		return DB.Create(&UserSettings{UserID: user.ID, Theme: "system", DailySRSLimit: 10, ShowKanjiOnHome: true}).Error
	}

	return nil
}
