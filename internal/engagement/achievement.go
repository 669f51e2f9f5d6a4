package engagement

import (
	"fmt"
	"math"
	"math/bits"
	"strings"
	"time"
)

// Category 是成就的分类，每个分类对应一个检查器。
type Category string

const (
	CategoryStreak      Category = "streak"
	CategoryLearning    Category = "learning"
	CategorySocial      Category = "social"
	CategoryExploration Category = "exploration"
)

// Categories 按检查顺序列出全部成就分类。
var Categories = []Category{CategoryStreak, CategoryLearning, CategorySocial, CategoryExploration}

// RequirementKind 标识成就要求的种类。
type RequirementKind int

const (
	RequirementQuestionsTotal RequirementKind = iota + 1
	RequirementStreak
	RequirementSharesTotal
	RequirementConfusionRetries
	RequirementLevelsTried
	RequirementVoiceUsed
)

var requirementTypes = map[string]RequirementKind{
	"questions_total":   RequirementQuestionsTotal,
	"streak":            RequirementStreak,
	"shares_total":      RequirementSharesTotal,
	"confusion_retries": RequirementConfusionRetries,
	"levels_tried":      RequirementLevelsTried,
	"voice_used":        RequirementVoiceUsed,
}

// Requirement 是成就解锁条件：阈值类使用 Value，布尔类使用 Flag。
type Requirement struct {
	Kind  RequirementKind
	Value int
	Flag  bool
}

// ParseRequirement 将存储层的 (type, value) 转换为 Requirement。
func ParseRequirement(requirementType string, value float64) (Requirement, error) {
	kind, ok := requirementTypes[strings.ToLower(strings.TrimSpace(requirementType))]
	if !ok {
		return Requirement{}, fmt.Errorf("%w: %q", ErrUnknownRequirement, requirementType)
	}
	if kind == RequirementVoiceUsed {
		return Requirement{Kind: kind, Flag: value != 0}, nil
	}
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return Requirement{}, fmt.Errorf("%w: invalid threshold %v for %q", ErrUnknownRequirement, value, requirementType)
	}
	// 统计值为整数，小数阈值向上取整才能保持 stats >= value
	return Requirement{Kind: kind, Value: int(math.Ceil(value))}, nil
}

// Stats 汇总评估成就所需的用户终身统计。
type Stats struct {
	TotalQuestions   int
	CurrentStreak    int
	LongestStreak    int
	Shares           int
	ConfusionRetries int
	LevelsMask       int
	VoiceUsed        bool
}

// LevelsTried 返回用户使用过的不同复杂度数量。
func (s Stats) LevelsTried() int {
	return bits.OnesCount(uint(s.LevelsMask))
}

// SatisfiedBy 判断当前统计是否满足要求。
func (r Requirement) SatisfiedBy(stats Stats) (bool, error) {
	switch r.Kind {
	case RequirementQuestionsTotal:
		return stats.TotalQuestions >= r.Value, nil
	case RequirementStreak:
		return stats.CurrentStreak >= r.Value, nil
	case RequirementSharesTotal:
		return stats.Shares >= r.Value, nil
	case RequirementConfusionRetries:
		return stats.ConfusionRetries >= r.Value, nil
	case RequirementLevelsTried:
		return stats.LevelsTried() >= r.Value, nil
	case RequirementVoiceUsed:
		return r.Flag && stats.VoiceUsed, nil
	default:
		return false, fmt.Errorf("%w: kind %d", ErrUnknownRequirement, r.Kind)
	}
}

// Achievement 是成就定义，属于静态参考数据。
type Achievement struct {
	ID               uint     `json:"id"`
	Code             string   `json:"code"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Icon             string   `json:"icon"`
	Category         Category `json:"category"`
	RequirementType  string   `json:"requirement_type"`
	RequirementValue float64  `json:"requirement_value"`
}

// Requirement 解析成就自身的解锁条件
func (a Achievement) Requirement() (Requirement, error) {
	return ParseRequirement(a.RequirementType, a.RequirementValue)
}

// UnlockedAchievement 是已解锁的成就及其解锁时间。
type UnlockedAchievement struct {
	Achievement
	UnlockedAt time.Time `json:"unlocked_at"`
}
