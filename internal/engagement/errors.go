package engagement

import "errors"

var (
	// ErrStoreUnavailable 表示存储读写因基础设施原因失败
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInvalidState 表示读取到的记录违反了不变量，通常意味着上游数据损坏
	ErrInvalidState = errors.New("invalid engagement state")
	// ErrUnknownRequirement 表示成就要求的类型无法识别
	ErrUnknownRequirement = errors.New("unknown achievement requirement")
)
