package utils

import (
	"sync"
	"time"

	"rl-dashboard/src/logger"
)

// -----------------------------------------------------------------------------
// MarketScheduler gates live-quote emission on exchange hours: the simulator
// only publishes market data for a symbol while its venue is open.
// -----------------------------------------------------------------------------

type MarketScheduler struct {
	Calendars map[string]*TradingCalendar
	Logger    *logger.Logger
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(symbols []string, l *logger.Logger) *MarketScheduler {
	ms := &MarketScheduler{
		Calendars: make(map[string]*TradingCalendar),
		Logger:    l,
	}
	ms.UpdateSymbols(symbols)
	return ms
}

// -----------------------------------------------------------------------------

// UpdateSymbols replaces the tracked symbol set and remaps calendars.
func (ms *MarketScheduler) UpdateSymbols(symbols []string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.Calendars = make(map[string]*TradingCalendar)
	for _, symbol := range symbols {
		if cal := GetCalendar(symbol); cal != nil {
			ms.Calendars[symbol] = cal
		}
	}

	ms.Logger.Info("Tracking %d symbols across %d calendars",
		len(symbols), len(ms.uniqueCalendars()))
}

// -----------------------------------------------------------------------------

// IsSymbolOpen reports whether the given symbol's market is live right now.
// Unknown symbols count as closed.
func (ms *MarketScheduler) IsSymbolOpen(symbol string) bool {
	ms.mu.RLock()
	cal := ms.Calendars[symbol]
	ms.mu.RUnlock()

	if cal == nil {
		return false
	}
	return cal.IsOpenAt(time.Now().UTC())
}

// -----------------------------------------------------------------------------

// AnyMarketOpen reports whether any tracked market is live right now.
func (ms *MarketScheduler) AnyMarketOpen() bool {
	now := time.Now().UTC()

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	for cal := range ms.uniqueCalendars() {
		if cal.IsOpenAt(now) {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------

// uniqueCalendars collapses symbols sharing a venue. Caller holds ms.mu.
func (ms *MarketScheduler) uniqueCalendars() map[*TradingCalendar]bool {
	unique := make(map[*TradingCalendar]bool)
	for _, cal := range ms.Calendars {
		unique[cal] = true
	}
	return unique
}
