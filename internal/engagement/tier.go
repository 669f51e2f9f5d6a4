package engagement

import "strings"

// Tier 表示用户的订阅等级，由计费系统维护，核心逻辑只读不写。
type Tier string

const (
	TierFree    Tier = "free"
	TierStarter Tier = "starter"
	TierPremium Tier = "premium"
)

// ParseTier 解析外部输入的等级，无法识别时回退为 free。
func ParseTier(raw string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(raw))) {
	case TierStarter:
		return TierStarter
	case TierPremium:
		return TierPremium
	default:
		return TierFree
	}
}

// Valid 判断等级是否为已知取值
func (t Tier) Valid() bool {
	return t == TierFree || t == TierStarter || t == TierPremium
}
