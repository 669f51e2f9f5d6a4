package db

import "time"

// QuestionLog 记录成功回答的问题，用于历史列表和重复提问检测
type QuestionLog struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index:idx_question_user_created"`
	Question  string    `gorm:"type:text;not null"`
	Level     string    `gorm:"size:16;not null"`
	Confused  bool      `gorm:"not null;default:false"`
	Source    string    `gorm:"size:16"`
	CreatedAt time.Time `gorm:"index:idx_question_user_created"`
}

// TableName 指定自定义表名
func (QuestionLog) TableName() string {
	return "question_logs"
}
