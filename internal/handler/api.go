package handler

import (
	"github.com/explainer/internal/logger"
	"github.com/explainer/internal/service"
	"gorm.io/gorm"
)

// Deps 汇总 HTTP 层依赖的服务
type Deps struct {
	DB            *gorm.DB
	Users         *service.UserService
	Usage         *service.UsageService
	Streaks       *service.StreakService
	Achievements  *service.AchievementService
	Conversations *service.ConversationService
	Shares        *service.ShareService
	Dashboards    *service.DashboardService
	System        *service.SystemSettingService
	Logger        *logger.Logger
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db            *gorm.DB
	users         *service.UserService
	usage         *service.UsageService
	streaks       *service.StreakService
	achievements  *service.AchievementService
	conversations *service.ConversationService
	shares        *service.ShareService
	dashboards    *service.DashboardService
	system        *service.SystemSettingService
	log           *logger.Logger
}

// NewAPI constructs a handler set with shared services.
func NewAPI(deps Deps) *API {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &API{
		db:            deps.DB,
		users:         deps.Users,
		usage:         deps.Usage,
		streaks:       deps.Streaks,
		achievements:  deps.Achievements,
		conversations: deps.Conversations,
		shares:        deps.Shares,
		dashboards:    deps.Dashboards,
		system:        deps.System,
		log:           log,
	}
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}
