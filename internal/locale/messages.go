package locale

// 接口返回给用户的提示文案，按 key 查找
const (
	MsgInvalidRequest     = "invalid_request"
	MsgEmptyMessage       = "empty_message"
	MsgUnauthorized       = "unauthorized"
	MsgForbidden          = "forbidden"
	MsgLoginFailed        = "login_failed"
	MsgSessionFailed      = "session_failed"
	MsgLoggedOut          = "logged_out"
	MsgDailyLimit         = "daily_limit_reached"
	MsgMonthlyLimit       = "monthly_limit_reached"
	MsgQuotaUnavailable   = "quota_unavailable"
	MsgGenerationFailed   = "generation_failed"
	MsgAchievementLocked  = "achievement_locked"
	MsgSettingsLoadFailed = "settings_load_failed"
	MsgSettingsSaveFailed = "settings_save_failed"
	MsgSettingsSaved      = "settings_saved"
	MsgAIKeyMissing       = "ai_key_missing"
	MsgAIConnectionOK     = "ai_connection_ok"
	MsgInternal           = "internal_error"
)

var messages = map[string]struct{ en, zh string }{
	MsgInvalidRequest:     {"The request could not be understood.", "请求格式不正确"},
	MsgEmptyMessage:       {"Please type a question first.", "请先输入问题"},
	MsgUnauthorized:       {"Please log in first.", "请先登录"},
	MsgForbidden:          {"Administrator access is required.", "需要管理员权限"},
	MsgLoginFailed:        {"Wrong username or password.", "用户名或密码错误"},
	MsgSessionFailed:      {"Could not save the session.", "会话保存失败"},
	MsgLoggedOut:          {"Logged out.", "已退出登录"},
	MsgDailyLimit:         {"You have used today's free questions. Upgrade to Starter to keep learning.", "今天的免费提问次数已用完，升级到 Starter 可继续提问"},
	MsgMonthlyLimit:       {"You have used this month's questions. Upgrade to Premium for unlimited questions.", "本月提问次数已用完，升级到 Premium 可无限提问"},
	MsgQuotaUnavailable:   {"We could not check your question allowance. Please try again shortly.", "暂时无法校验提问额度，请稍后再试"},
	MsgGenerationFailed:   {"The explanation could not be generated. This question was not counted.", "讲解生成失败，本次提问不计入额度"},
	MsgAchievementLocked:  {"This achievement is not unlocked yet.", "该成就尚未解锁"},
	MsgSettingsLoadFailed: {"Failed to load settings.", "获取系统设置失败"},
	MsgSettingsSaveFailed: {"Failed to save settings.", "保存系统设置失败"},
	MsgSettingsSaved:      {"Settings saved.", "系统设置已保存"},
	MsgAIKeyMissing:       {"Please provide a valid AI API key.", "请填写有效的 AI API Key"},
	MsgAIConnectionOK:     {"The AI endpoint is reachable.", "AI 接口连接正常"},
	MsgInternal:           {"Something went wrong.", "服务器内部错误"},
}

// Message 返回 key 对应的提示文案，未知 key 原样返回。
func Message(language, key string) string {
	entry, ok := messages[key]
	if !ok {
		return key
	}
	return Pick(language, entry.en, entry.zh)
}
