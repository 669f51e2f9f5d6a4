package engagement

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Action 是针对困惑信号建议的纠正动作。
type Action string

const (
	ActionRetry            Action = "retry"
	ActionSimplify         Action = "simplify"
	ActionDifferentAnalogy Action = "different_analogy"
)

const (
	// ConfusedThreshold 达到该置信度即视为困惑
	ConfusedThreshold = 0.5
	// RepeatSimilarityThreshold 与上一问题的相似度超过该值视为重复提问
	RepeatSimilarityThreshold = 0.7
	// RepeatSignalWeight 重复提问信号的权重
	RepeatSignalWeight = 0.8
	// RepeatSignalID 重复提问信号在 MatchedSignals 中的标识
	RepeatSignalID = "repeated_question"

	minRepeatMessageRunes = 10
)

// ConfusionRule 是规则表中的一行：命中 Pattern 时累加 Weight 并建议 Action。
type ConfusionRule struct {
	ID      string
	Pattern *regexp.Regexp
	Weight  float64
	Action  Action
}

// ConfusionSignal 描述一条消息是否表明用户没有理解上一轮回答。
type ConfusionSignal struct {
	IsConfused      bool     `json:"is_confused"`
	Confidence      float64  `json:"confidence"`
	MatchedSignals  []string `json:"matched_signals"`
	SuggestedAction Action   `json:"suggested_action"`
}

// DefaultConfusionRules 是按顺序匹配的规则表，顺序决定同权重时的动作选择。
var DefaultConfusionRules = []ConfusionRule{
	{
		ID:      "dont_understand",
		Pattern: regexp.MustCompile(`(?i)\b(don[’']?t|do not|doesn[’']?t|didn[’']?t|still don[’']?t)\s+(really\s+)?(understand|get it|follow|make sense)|\bnot\s+(getting|following)\b|\bno idea what\b`),
		Weight:  0.9,
		Action:  ActionSimplify,
	},
	{
		ID:      "bare_confusion",
		Pattern: regexp.MustCompile(`(?i)^\s*(huh+|what|wut|eh|hm+|umm*)\s*\?+\s*$|^\s*\?{2,}\s*$`),
		Weight:  0.9,
		Action:  ActionRetry,
	},
	{
		ID:      "simplify_request",
		Pattern: regexp.MustCompile(`(?i)\b(simpler|simplify|easier|plain english|eli5|dumb it down|break it down)\b|\blike i[’']?m (5|five)\b`),
		Weight:  0.9,
		Action:  ActionSimplify,
	},
	{
		ID:      "too_complex",
		Pattern: regexp.MustCompile(`(?i)\btoo (complicated|complex|technical|hard|advanced)\b|\bover my head\b|\btoo much jargon\b`),
		Weight:  0.8,
		Action:  ActionSimplify,
	},
	{
		ID:      "confused_statement",
		Pattern: regexp.MustCompile(`(?i)\b(i[’']?m|i am|still|so|really)\s+(confused|lost)\b|\bmakes no sense\b|\bunclear\b`),
		Weight:  0.8,
		Action:  ActionSimplify,
	},
	{
		ID:      "analogy_request",
		Pattern: regexp.MustCompile(`(?i)\b(another|different|other|better)\s+(analogy|example|metaphor|comparison)\b`),
		Weight:  0.8,
		Action:  ActionDifferentAnalogy,
	},
	{
		ID:      "explain_again",
		Pattern: regexp.MustCompile(`(?i)\bexplain (it |that |this )?again\b|\bsay that again\b|\bone more time\b|\brephrase\b`),
		Weight:  0.7,
		Action:  ActionRetry,
	},
	{
		ID:      "term_clarification",
		Pattern: regexp.MustCompile(`(?i)\bwhat (does|do|is)\b.{1,40}\bmean\b`),
		Weight:  0.4,
		Action:  ActionRetry,
	},
}

// ConfusionClassifier 依据规则表与重复提问检测计算困惑信号。
type ConfusionClassifier struct {
	rules []ConfusionRule
}

// NewConfusionClassifier 使用给定规则表构造分类器，rules 为空时使用 DefaultConfusionRules。
func NewConfusionClassifier(rules []ConfusionRule) *ConfusionClassifier {
	if len(rules) == 0 {
		rules = DefaultConfusionRules
	}
	return &ConfusionClassifier{rules: rules}
}

// Rules 返回分类器使用的规则表。
func (c *ConfusionClassifier) Rules() []ConfusionRule {
	return c.rules
}

// Analyze 计算 message 的困惑信号；previousQuestion 为空时跳过重复提问检测。
func (c *ConfusionClassifier) Analyze(message, previousQuestion string) ConfusionSignal {
	signal := ConfusionSignal{MatchedSignals: []string{}, SuggestedAction: ActionRetry}

	message = strings.TrimSpace(message)
	if message == "" {
		return signal
	}

	var (
		total      float64
		bestWeight float64
		action     = ActionRetry
	)
	for _, rule := range c.rules {
		if rule.Pattern == nil || !rule.Pattern.MatchString(message) {
			continue
		}
		total += rule.Weight
		signal.MatchedSignals = append(signal.MatchedSignals, rule.ID)
		if rule.Weight > bestWeight {
			bestWeight = rule.Weight
			action = rule.Action
		}
	}

	previousQuestion = strings.TrimSpace(previousQuestion)
	if previousQuestion != "" && utf8.RuneCountInString(message) > minRepeatMessageRunes {
		if JaccardSimilarity(message, previousQuestion) > RepeatSimilarityThreshold {
			total += RepeatSignalWeight
			signal.MatchedSignals = append(signal.MatchedSignals, RepeatSignalID)
			action = ActionSimplify
		}
	}

	signal.Confidence = min(total, 1.0)
	signal.IsConfused = signal.Confidence >= ConfusedThreshold
	if signal.IsConfused {
		signal.SuggestedAction = action
	}
	return signal
}

// JaccardSimilarity 计算两段文本按空白分词、小写化后的词集合 Jaccard 相似度。
func JaccardSimilarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for word := range setA {
		if _, ok := setB[word]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}
