package models

// -----------------------------------------------------------------------------
// MSeriesPoint is a normalized time-series point for chart-style consumers:
// ordinal (training step, trade index, ...), primary value (cumulative reward,
// NAV, ...) and an optional secondary value (loss). Points are kept in arrival
// order; the transport is ordered so no reordering happens downstream.
// -----------------------------------------------------------------------------

type MSeriesPoint struct {
	Ordinal   int64     `json:"ordinal"`
	Value     float64   `json:"value"`
	Secondary MOptFloat `json:"secondary,omitempty"`
}
