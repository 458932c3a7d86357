package handler

import (
	"github.com/kanjilog/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db          *gorm.DB
	users       *service.UserService
	cards       *service.CardService
	queue       *service.QueueService
	progress    *service.ProgressService
	settings    *service.SettingsService
	preferences *service.PreferenceService
	stories     *service.StoryService
	quickTests  *service.QuickTestService
	system      *service.SystemSettingService
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB) *API {
	users := service.NewUserService(gdb)
	queue := service.NewQueueService(gdb, users)
	system := service.NewSystemSettingService(gdb)
	preferences := service.NewPreferenceService(gdb)

	return &API{
		db:          gdb,
		users:       users,
		cards:       service.NewCardService(gdb, users),
		queue:       queue,
		progress:    service.NewProgressService(gdb, users),
		settings:    service.NewSettingsService(gdb, users, queue),
		preferences: preferences,
		stories:     service.NewStoryService(gdb, system, preferences),
		quickTests:  service.NewQuickTestService(gdb),
		system:      system,
	}
}

// DB exposes the underlying gorm instance for legacy paths.
func (a *API) DB() *gorm.DB {
	return a.db
}

// Stories exposes the story service so callers can override AI endpoints.
func (a *API) Stories() *service.StoryService {
	return a.stories
}

// Preferences exposes the preference service for startup seeding.
func (a *API) Preferences() *service.PreferenceService {
	return a.preferences
}
