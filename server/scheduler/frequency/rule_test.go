package frequency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	schederrors "github.com/hrygo/slotweaver/server/internal/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *Rule
		wantErr bool
	}{
		{
			name:  "simple weekly",
			input: "FREQ=WEEKLY",
			want:  &Rule{Frequency: Weekly, Interval: 1, PerPeriod: 1},
		},
		{
			name:  "weekly with interval",
			input: "FREQ=WEEKLY;INTERVAL=2",
			want:  &Rule{Frequency: Weekly, Interval: 2, PerPeriod: 1},
		},
		{
			name:  "weekly with days",
			input: "FREQ=WEEKLY;BYDAY=MO,WE,FR",
			want:  &Rule{Frequency: Weekly, Interval: 1, PerPeriod: 1, ByDay: []Weekday{Monday, Wednesday, Friday}},
		},
		{
			name:  "daily with count and prefix",
			input: "RRULE:FREQ=DAILY;COUNT=10",
			want:  &Rule{Frequency: Daily, Interval: 1, PerPeriod: 1, Count: 10},
		},
		{
			name:  "monthly by month day",
			input: "FREQ=MONTHLY;BYMONTHDAY=15",
			want:  &Rule{Frequency: Monthly, Interval: 1, PerPeriod: 1, ByMonthDay: []int{15}},
		},
		{
			name:  "until date",
			input: "FREQ=DAILY;UNTIL=20260310T000000Z",
			want:  &Rule{Frequency: Daily, Interval: 1, PerPeriod: 1, Until: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)},
		},
		{
			name:  "shorthand twice weekly",
			input: "twice_weekly",
			want:  &Rule{Name: NameTwiceWeekly, Frequency: Weekly, Interval: 1, PerPeriod: 2},
		},
		{
			name:  "shorthand is case insensitive",
			input: "Daily",
			want:  &Rule{Name: NameDaily, Frequency: Daily, Interval: 1, PerPeriod: 1},
		},
		{name: "empty string", input: "", wantErr: true},
		{name: "missing freq", input: "COUNT=3", wantErr: true},
		{name: "unsupported freq", input: "FREQ=SECONDLY", wantErr: true},
		{name: "bad count", input: "FREQ=DAILY;COUNT=x", wantErr: true},
		{name: "bad day", input: "FREQ=WEEKLY;BYDAY=XX", wantErr: true},
		{name: "unknown shorthand", input: "fortnightly", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, schederrors.IsCode(err, schederrors.ErrCodeInvalidArgument))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRule_String(t *testing.T) {
	tests := []struct {
		name string
		rule *Rule
		want string
	}{
		{
			name: "simple weekly",
			rule: &Rule{Frequency: Weekly, Interval: 1},
			want: "FREQ=WEEKLY",
		},
		{
			name: "weekly with days",
			rule: &Rule{Frequency: Weekly, Interval: 1, ByDay: []Weekday{Monday, Wednesday, Friday}},
			want: "FREQ=WEEKLY;BYDAY=MO,WE,FR",
		},
		{
			name: "daily with count",
			rule: &Rule{Frequency: Daily, Interval: 1, Count: 10},
			want: "FREQ=DAILY;COUNT=10",
		},
		{
			name: "interval and hour",
			rule: &Rule{Frequency: Daily, Interval: 2, ByHour: []int{9, 14}},
			want: "FREQ=DAILY;INTERVAL=2;BYHOUR=9,14",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.String())
		})
	}
}

func TestRule_Label(t *testing.T) {
	r, err := Parse("weekly")
	require.NoError(t, err)
	assert.Equal(t, "weekly", r.Label())

	r, err = Parse("FREQ=WEEKLY;BYDAY=TU")
	require.NoError(t, err)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=TU", r.Label())
}

func TestRule_DaysOfWeek(t *testing.T) {
	r, err := Parse("weekdays")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, r.DaysOfWeek())

	r, err = Parse("FREQ=WEEKLY;BYDAY=SU,SA")
	require.NoError(t, err)
	assert.Equal(t, []int{6, 5}, r.DaysOfWeek())

	r, err = Parse("daily")
	require.NoError(t, err)
	assert.Nil(t, r.DaysOfWeek())
}

func ExampleParse() {
	// Every Monday, Wednesday, Friday
	rule, _ := Parse("FREQ=WEEKLY;BYDAY=MO,WE,FR")
	_ = rule

	// Two sessions a week, placed at least two days apart
	rule, _ = Parse("twice_weekly")
	_ = rule
}
