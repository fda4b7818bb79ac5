// Package timeout defines centralized timeout constants for ranking and
// calendar collaborator calls.
// Package timeout 定义排序与日历协作方调用的集中式超时常量。
package timeout

import "time"

// Timeout constants.
// 超时常量。
const (
	// RankingTimeout bounds one call to a pluggable ranker. When it expires
	// the selector falls back to the earliest fitting candidate.
	// RankingTimeout 是单次排序调用的超时时间，超时后使用确定性回退策略。
	RankingTimeout = 10 * time.Second

	// RuleRankingTimeout bounds the CEL rule ranker, which never leaves the process.
	// RuleRankingTimeout 是 CEL 规则排序的超时时间。
	RuleRankingTimeout = 2 * time.Second

	// BusyFetchTimeout is the timeout for loading busy periods from the calendar.
	// BusyFetchTimeout 是从日历读取忙碌时段的超时时间。
	BusyFetchTimeout = 30 * time.Second

	// EventCreateTimeout is the timeout for creating a single calendar event.
	// EventCreateTimeout 是创建单个日历事件的超时时间。
	EventCreateTimeout = 15 * time.Second

	// MaxCorrection is how far a ranker's proposed start may be moved to fit
	// inside its candidate before the proposal is rejected.
	// MaxCorrection 是排序建议开始时间允许的最大修正量。
	MaxCorrection = 15 * time.Minute

	// MaxTruncateLength is the maximum length for truncating strings in logs.
	// MaxTruncateLength 是日志中字符串截断的最大长度。
	MaxTruncateLength = 200
)
