package service

import (
	"testing"
	"time"

	"github.com/kanjilog/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupUserTestDB(t *testing.T) func() {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	db.DB = gdb

	return func() {
		sqlDB, err := db.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}

func TestUserServiceRegisterAndAuthenticate(t *testing.T) {
	cleanup := setupUserTestDB(t)
	defer cleanup()

	svc := NewUserService(db.DB)

	user, err := svc.Register(RegisterInput{Username: "mika", Password: "secret123", Timezone: "Asia/Tokyo"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Fatal("expected user to have UUID")
	}
	if user.Password == "secret123" {
		t.Fatal("expected password to be hashed")
	}

	// 注册时应附带默认设置
	var settings db.UserSettings
	if err := db.DB.Where("user_id = ?", user.ID).First(&settings).Error; err != nil {
		t.Fatalf("expected default settings: %v", err)
	}
	if settings.DailySRSLimit != 10 {
		t.Fatalf("unexpected daily limit: %d", settings.DailySRSLimit)
	}

	authed, err := svc.Authenticate("mika", "secret123")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if authed.ID != user.ID {
		t.Fatal("expected matching user")
	}

	if _, err := svc.Authenticate("mika", "wrong"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate("nobody", "secret123"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestUserServiceRegisterValidation(t *testing.T) {
	cleanup := setupUserTestDB(t)
	defer cleanup()

	svc := NewUserService(db.DB)

	if _, err := svc.Register(RegisterInput{Username: "", Password: "x"}); err == nil {
		t.Fatal("expected error for empty username")
	}

	if _, err := svc.Register(RegisterInput{Username: "kenji", Password: "pw123456", Timezone: "Mars/Olympus"}); err == nil {
		t.Fatal("expected error for invalid timezone")
	}

	if _, err := svc.Register(RegisterInput{Username: "kenji", Password: "pw123456"}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, err := svc.Register(RegisterInput{Username: "kenji", Password: "other"}); err != ErrUsernameTaken {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestUserServiceTimezoneFor(t *testing.T) {
	cleanup := setupUserTestDB(t)
	defer cleanup()

	svc := NewUserService(db.DB)

	tokyo, err := svc.Register(RegisterInput{Username: "tokyo", Password: "pw123456", Timezone: "Asia/Tokyo"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	plain, err := svc.Register(RegisterInput{Username: "plain", Password: "pw123456"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if loc := svc.TimezoneFor(tokyo.ID); loc.String() != "Asia/Tokyo" {
		t.Fatalf("unexpected timezone: %s", loc)
	}
	if loc := svc.TimezoneFor(plain.ID); loc != time.UTC {
		t.Fatalf("expected UTC fallback, got %s", loc)
	}
}
