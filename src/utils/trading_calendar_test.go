package utils

import (
	"testing"
	"time"

	"rl-dashboard/src/logger"
)

// -----------------------------------------------------------------------------

func TestGetCalendarResolvesVenue(t *testing.T) {
	us := GetCalendar("AAPL")
	if us == nil || us.Timezone == nil {
		t.Fatal("US calendar missing")
	}

	// Suffixed tickers resolve to their home venue's timezone
	ams := GetCalendar("ASML.AS")
	if ams == nil || ams.Timezone == nil {
		t.Fatal("AMS calendar missing")
	}
	if !ams.Fallback && !us.Fallback && ams.Timezone.String() == us.Timezone.String() {
		t.Errorf("ASML.AS and AAPL share timezone %s", us.Timezone)
	}
}

// -----------------------------------------------------------------------------

func TestIsTradingDayWeekend(t *testing.T) {
	cal := GetCalendar("AAPL")

	saturday := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	if cal.IsTradingDay(saturday) {
		t.Error("Saturday reported as trading day")
	}

	wednesday := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)
	if !cal.IsTradingDay(wednesday) {
		t.Error("ordinary Wednesday reported as closed")
	}
}

// -----------------------------------------------------------------------------

func TestFallbackSessionWindow(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	cal := &TradingCalendar{Fallback: true, Timezone: ny}

	cases := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"before open", time.Date(2026, 3, 11, 9, 0, 0, 0, ny), false},
		{"at open", time.Date(2026, 3, 11, 9, 30, 0, 0, ny), true},
		{"midday", time.Date(2026, 3, 11, 13, 0, 0, 0, ny), true},
		{"after close", time.Date(2026, 3, 11, 16, 0, 0, 0, ny), false},
		{"weekend midday", time.Date(2026, 3, 14, 13, 0, 0, 0, ny), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cal.IsOpenAt(tc.t); got != tc.want {
				t.Errorf("IsOpenAt(%v) = %v, want %v", tc.t, got, tc.want)
			}
		})
	}
}

// -----------------------------------------------------------------------------

func TestMarketSchedulerUnknownSymbol(t *testing.T) {
	ms := NewMarketScheduler([]string{"AAPL"}, logger.NewLogger("ERROR", "test"))

	if ms.IsSymbolOpen("GHOST") {
		t.Error("unknown symbol reported open")
	}
}

// -----------------------------------------------------------------------------

func TestMarketSchedulerUpdateSymbols(t *testing.T) {
	ms := NewMarketScheduler([]string{"AAPL"}, logger.NewLogger("ERROR", "test"))
	ms.UpdateSymbols([]string{"MSFT"})

	if _, ok := ms.Calendars["AAPL"]; ok {
		t.Error("stale symbol kept after update")
	}
	if _, ok := ms.Calendars["MSFT"]; !ok {
		t.Error("new symbol missing after update")
	}
}
