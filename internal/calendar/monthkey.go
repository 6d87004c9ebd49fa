package calendar

import (
	"fmt"
	"strings"
	"time"
)

// MonthKey 是 "当月" 缓存条目的确定性标识，由年份与英文月份名组成。
// 同一自然月内的任意两次调用产生相同的 key。
type MonthKey struct {
	Year  int
	Month time.Month
}

// MonthKeyFor 按给定时刻的年月截断生成 MonthKey。
func MonthKeyFor(t time.Time) MonthKey {
	return MonthKey{
		Year:  t.Year(),
		Month: t.Month(),
	}
}

// String 输出小写格式的缓存键，例如 "2024june"。
func (k MonthKey) String() string {
	return fmt.Sprintf("%d%s", k.Year, strings.ToLower(k.Month.String()))
}
