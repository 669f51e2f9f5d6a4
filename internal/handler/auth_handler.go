package handler

import (
	"errors"
	"net/http"

	"github.com/explainer/internal/locale"
	"github.com/explainer/internal/service"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	sessionUserIDKey   = "user_id"
	sessionUsernameKey = "username"
	userIDContextKey   = "__user_id"
)

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Login 校验用户名密码并写入会话
func (a *API) Login(c *gin.Context) {
	var payload loginRequest
	if err := c.ShouldBind(&payload); err != nil {
		a.respondLocalized(c, http.StatusBadRequest, locale.MsgInvalidRequest)
		return
	}

	user, err := a.users.Authenticate(c.Request.Context(), payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			a.respondLocalized(c, http.StatusUnauthorized, locale.MsgLoginFailed)
			return
		}
		requestLogger(c, a.log).Error("login failed", "error", err)
		a.respondLocalized(c, http.StatusInternalServerError, locale.MsgInternal)
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserIDKey, user.ID)
	session.Set(sessionUsernameKey, user.Username)
	if err := session.Save(); err != nil {
		a.respondLocalized(c, http.StatusInternalServerError, locale.MsgSessionFailed)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"tier":     user.Tier,
			"is_admin": user.IsAdmin,
		},
	})
}

// Logout 清空会话
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	c.JSON(http.StatusOK, gin.H{"message": a.message(c, locale.MsgLoggedOut)})
}

// AuthRequired 要求已登录，未登录返回 401
func (a *API) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessionUserID(sessions.Default(c))
		if !ok {
			a.respondLocalized(c, http.StatusUnauthorized, locale.MsgUnauthorized)
			c.Abort()
			return
		}
		c.Set(userIDContextKey, userID)
		c.Next()
	}
}

// AdminRequired 要求当前用户为管理员，每次从库中读取以便撤权立即生效
func (a *API) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := a.users.Get(c.Request.Context(), currentUserID(c))
		if err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				a.respondLocalized(c, http.StatusUnauthorized, locale.MsgUnauthorized)
			} else {
				a.respondLocalized(c, http.StatusInternalServerError, locale.MsgInternal)
			}
			c.Abort()
			return
		}
		if !user.IsAdmin {
			a.respondLocalized(c, http.StatusForbidden, locale.MsgForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

func sessionUserID(session sessions.Session) (uint, bool) {
	switch v := session.Get(sessionUserIDKey).(type) {
	case uint:
		return v, v > 0
	case int:
		return uint(v), v > 0
	case int64:
		return uint(v), v > 0
	default:
		return 0, false
	}
}

func currentUserID(c *gin.Context) uint {
	return c.GetUint(userIDContextKey)
}
