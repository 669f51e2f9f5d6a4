package db

import (
	"errors"
	"strings"

	"github.com/explainer/internal/engagement"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User 定义了学习者模型，Tier 由计费系统写入，核心逻辑只读
type User struct {
	gorm.Model
	Username string `gorm:"unique;not null"`
	Password string `gorm:"not null"`
	Tier     string `gorm:"size:16;not null;default:'free'"`
	IsAdmin  bool   `gorm:"not null;default:false"`
}

// UserInput 描述 EnsureUser 创建账号时的参数
type UserInput struct {
	Username string
	Password string
	Tier     engagement.Tier
	IsAdmin  bool
}

// EnsureUser 存在性检查：若用户名与密码均非空且不存在对应账号，则创建一个 bcrypt 哈希的用户。
// 已存在的账号只同步 Tier 与 IsAdmin，不会覆盖密码。
func EnsureUser(gdb *gorm.DB, input UserInput) (*User, error) {
	trimmedUser := strings.TrimSpace(input.Username)
	trimmedPassword := strings.TrimSpace(input.Password)
	if trimmedUser == "" || trimmedPassword == "" {
		return nil, nil
	}

	if gdb == nil {
		return nil, errors.New("database not initialized")
	}

	tier := input.Tier
	if !tier.Valid() {
		tier = engagement.TierFree
	}

	var existing User
	if err := gdb.Where("username = ?", trimmedUser).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(trimmedPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}

		user := User{Username: trimmedUser, Password: string(hashed), Tier: string(tier), IsAdmin: input.IsAdmin}
		if err := gdb.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}

	if err := gdb.Model(&existing).Updates(map[string]interface{}{
		"tier":     string(tier),
		"is_admin": input.IsAdmin,
	}).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}
