package engagement

import "strings"

// Level 表示讲解的复杂度，按 5yo < normal < advanced 排序。
type Level string

const (
	Level5yo      Level = "5yo"
	LevelNormal   Level = "normal"
	LevelAdvanced Level = "advanced"
)

// Levels 按从简单到复杂的顺序列出全部复杂度。
var Levels = []Level{Level5yo, LevelNormal, LevelAdvanced}

// ParseLevel 解析复杂度，未知取值回退为 normal。
func ParseLevel(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "5yo", "eli5", "simple":
		return Level5yo
	case "advanced", "expert":
		return LevelAdvanced
	default:
		return LevelNormal
	}
}

func (l Level) rank() int {
	for i, candidate := range Levels {
		if candidate == l {
			return i
		}
	}
	return 1
}

// Simpler 向左移动一级，5yo 为下限。
func (l Level) Simpler() Level {
	r := l.rank()
	if r == 0 {
		return Level5yo
	}
	return Levels[r-1]
}

// Harder 向右移动一级，advanced 为上限。
func (l Level) Harder() Level {
	r := l.rank()
	if r == len(Levels)-1 {
		return LevelAdvanced
	}
	return Levels[r+1]
}

// Bit 返回该复杂度在 levels_mask 中对应的位。
func (l Level) Bit() int {
	return 1 << l.rank()
}
