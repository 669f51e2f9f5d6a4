package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 汇总问答流程的 Prometheus 指标，nil 接收者上的 Observe* 调用不做任何事
type Metrics struct {
	questions          *prometheus.CounterVec
	confusion          *prometheus.CounterVec
	levelAdjustments   *prometheus.CounterVec
	bookkeepingFailure *prometheus.CounterVec
	unlocks            *prometheus.CounterVec
	generation         prometheus.Histogram
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default 返回注册在默认 registry 上的进程级指标
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = MustNew(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// MustNew 在 reg 上注册指标，同名指标已存在时复用已有的 collector
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		questions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "explainer",
			Name:      "questions_total",
			Help:      "Questions handled by the pipeline, by tier and outcome.",
		}, []string{"tier", "outcome"}),
		confusion: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "explainer",
			Name:      "confusion_detected_total",
			Help:      "Messages classified as confused, by suggested action.",
		}, []string{"action"}),
		levelAdjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "explainer",
			Name:      "level_adjustments_total",
			Help:      "Simplicity level changes applied before generation.",
		}, []string{"from", "to"}),
		bookkeepingFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "explainer",
			Name:      "bookkeeping_failures_total",
			Help:      "Post-answer bookkeeping steps that failed after retries.",
		}, []string{"step"}),
		unlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "explainer",
			Name:      "achievements_unlocked_total",
			Help:      "Achievements unlocked, by category.",
		}, []string{"category"}),
		generation: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "explainer",
			Name:      "generation_duration_seconds",
			Help:      "Time spent waiting for the explanation generator.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	m.questions = register(reg, m.questions)
	m.confusion = register(reg, m.confusion)
	m.levelAdjustments = register(reg, m.levelAdjustments)
	m.bookkeepingFailure = register(reg, m.bookkeepingFailure)
	m.unlocks = register(reg, m.unlocks)
	m.generation = register(reg, m.generation)
	return m
}

// register 注册失败且不是重复注册时直接 panic
func register[T prometheus.Collector](reg prometheus.Registerer, collector T) T {
	if err := reg.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return collector
}

// ObserveQuestion 按订阅等级与结果记录一次提问
func (m *Metrics) ObserveQuestion(tier, outcome string) {
	if m == nil {
		return
	}
	m.questions.WithLabelValues(tier, outcome).Inc()
}

// ObserveConfusion 记录一次识别出的困惑及建议动作
func (m *Metrics) ObserveConfusion(action string) {
	if m == nil {
		return
	}
	m.confusion.WithLabelValues(action).Inc()
}

// ObserveLevelAdjustment 记录生成前的复杂度调整
func (m *Metrics) ObserveLevelAdjustment(from, to string) {
	if m == nil {
		return
	}
	m.levelAdjustments.WithLabelValues(from, to).Inc()
}

// ObserveBookkeepingFailure 记录重试后仍失败的记账步骤
func (m *Metrics) ObserveBookkeepingFailure(step string) {
	if m == nil {
		return
	}
	m.bookkeepingFailure.WithLabelValues(step).Inc()
}

// ObserveUnlock 按分类记录成就解锁
func (m *Metrics) ObserveUnlock(category string) {
	if m == nil {
		return
	}
	m.unlocks.WithLabelValues(category).Inc()
}

// ObserveGeneration 记录等待解释生成的耗时
func (m *Metrics) ObserveGeneration(d time.Duration) {
	if m == nil {
		return
	}
	m.generation.Observe(d.Seconds())
}
