package engagement

// AdjustThreshold 调整复杂度前要求的最低置信度，严格高于 ConfusedThreshold。
const AdjustThreshold = 0.7

const (
	simplifyInstructions = "Open with \"Let me try differently.\" Use a completely different everyday analogy than before " +
		"and walk through the idea in smaller steps, one concept at a time."
	differentAnalogyInstructions = "Keep the same level of complexity, but replace the analogy with one drawn from a " +
		"completely unrelated domain."
	retryInstructions = "Rephrase the explanation with a different analogy and a warmer, more encouraging tone. " +
		"Do not assume the user wants a big drop in complexity."
)

// Adjustment 是 NextLevel 的结果，只用于下一次生成，不做持久化。
type Adjustment struct {
	Level             Level  `json:"level"`
	RetryInstructions string `json:"retry_instructions"`
}

// ShouldAdjust 判断调用方是否应当调整复杂度。
func ShouldAdjust(signal ConfusionSignal) bool {
	return signal.IsConfused && signal.Confidence > AdjustThreshold
}

// NextLevel 根据建议动作计算下一次生成使用的复杂度与重试指令。
func NextLevel(current Level, signal ConfusionSignal) Adjustment {
	switch signal.SuggestedAction {
	case ActionSimplify:
		return Adjustment{Level: current.Simpler(), RetryInstructions: simplifyInstructions}
	case ActionDifferentAnalogy:
		return Adjustment{Level: current, RetryInstructions: differentAnalogyInstructions}
	default:
		return Adjustment{Level: current.Simpler(), RetryInstructions: retryInstructions}
	}
}
