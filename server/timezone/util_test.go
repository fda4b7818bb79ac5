package timezone

import (
	"strings"
	"testing"
	"time"
)

func TestParseTimezone(t *testing.T) {
	tests := []struct {
		name     string
		tz       string
		wantName string
		wantErr  bool
	}{
		{"empty string is UTC", "", "UTC", false},
		{"UTC", "UTC", "UTC", false},
		{"Europe/Berlin", "Europe/Berlin", "Europe/Berlin", false},
		{"Australia/Lord_Howe half-hour DST", "Australia/Lord_Howe", "Australia/Lord_Howe", false},
		{"unknown zone falls back to UTC", "Mars/Olympus_Mons", "UTC", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := ParseTimezone(tt.tz)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseTimezone() error = %v, wantErr %v", err, tt.wantErr)
			}
			if loc == nil {
				t.Fatal("ParseTimezone() returned a nil location")
			}
			if loc.String() != tt.wantName {
				t.Errorf("ParseTimezone() = %v, want %v", loc, tt.wantName)
			}
		})
	}
}

func TestIsValidTimezone(t *testing.T) {
	for tz, want := range map[string]bool{
		"":                  true,
		"America/Sao_Paulo": true,
		"Asia/Kolkata":      true,
		"Not/A_Zone":        false,
		"Europe/Atlantis":   false,
	} {
		if got := IsValidTimezone(tz); got != want {
			t.Errorf("IsValidTimezone(%q) = %v, want %v", tz, got, want)
		}
	}
}

func TestParseDateTime(t *testing.T) {
	shanghai, err := ParseTimezone("Asia/Shanghai")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{"rfc3339 keeps its offset", "2026-03-02T09:00:00Z", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), false},
		{"local minute", "2026-03-02 09:00", time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC), false},
		{"date only", "2026-03-02", time.Date(2026, 3, 1, 16, 0, 0, 0, time.UTC), false},
		{"garbage", "next tuesday", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDateTime(tt.in, shanghai)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseDateTime() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseDateTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatEventTime(t *testing.T) {
	// 2025-01-21 14:00:00 UTC
	start := time.Date(2025, 1, 21, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		start, end   time.Time
		allDay       bool
		tz           string
		wantContains string
	}{
		{
			name:         "all-day event",
			start:        time.Date(2025, 1, 21, 0, 0, 0, 0, time.UTC),
			end:          time.Date(2025, 1, 22, 0, 0, 0, 0, time.UTC),
			allDay:       true,
			tz:           "UTC",
			wantContains: "2025-01-21",
		},
		{
			name:         "multi-day all-day event shows the last day",
			start:        time.Date(2025, 1, 21, 0, 0, 0, 0, time.UTC),
			end:          time.Date(2025, 1, 24, 0, 0, 0, 0, time.UTC),
			allDay:       true,
			tz:           "UTC",
			wantContains: "2025-01-21 - 2025-01-23",
		},
		{
			name:         "same day",
			start:        start,
			end:          start.Add(time.Hour),
			tz:           "UTC",
			wantContains: "14:00 - 15:00",
		},
		{
			name:         "Asia/Shanghai timezone",
			start:        start,
			end:          start.Add(time.Hour),
			tz:           "Asia/Shanghai",
			wantContains: "22:00 - 23:00",
		},
		{
			name:         "crossing midnight",
			start:        start,
			end:          start.Add(11 * time.Hour),
			tz:           "UTC",
			wantContains: "2025-01-22 01:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, _ := ParseTimezone(tt.tz)
			got := FormatEventTime(tt.start, tt.end, tt.allDay, loc)
			if !strings.Contains(got, tt.wantContains) {
				t.Errorf("FormatEventTime() = %v, want to contain %v", got, tt.wantContains)
			}
		})
	}
}

func TestStartOfDay(t *testing.T) {
	// 2025-01-21 14:30:00 UTC
	testTime := time.Date(2025, 1, 21, 14, 30, 0, 0, time.UTC)

	loc, _ := ParseTimezone("Asia/Shanghai")
	got := StartOfDay(testTime, loc)

	// 2025-01-21 22:30 in Shanghai, so local midnight is 2025-01-20 16:00 UTC.
	want := time.Date(2025, 1, 20, 16, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("StartOfDay() = %v, want %v", got, want)
	}
}
