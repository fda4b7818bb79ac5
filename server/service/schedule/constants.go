package schedule

// Package-level constants for planning.

const (
	// DefaultWindowDays is the window length used when a request gives neither
	// an explicit window nor a number of days.
	DefaultWindowDays = 7

	// MaxWindowDays bounds WindowDays.
	MaxWindowDays = 365

	// DefaultCalendarID is used when a request does not name a calendar.
	DefaultCalendarID = "default"
)

// Mode selects the placement strategy.
type Mode string

const (
	// ModeMinutes spreads a minutes budget over the window.
	ModeMinutes Mode = "minutes"
	// ModeRecurring places a number of spaced occurrences.
	ModeRecurring Mode = "recurring"
	// ModeSingle places one event for a one-off task.
	ModeSingle Mode = "single"
)

// Status is the terminal state of a plan.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusPartial Status = "PARTIAL"
	StatusFailed  Status = "FAILED"
)

// Pipeline stages, in execution order. Each appears at most once in a
// decision log.
const (
	StageWindow       = "window"
	StageFetchBusy    = "fetch_busy"
	StageFreeSlots    = "free_slots"
	StageFilter       = "filter"
	StageDistribute   = "distribute"
	StageSelect       = "select"
	StageCreateEvents = "create_events"
	StageComplete     = "complete"
)
