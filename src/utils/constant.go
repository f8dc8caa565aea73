package utils

// -----------------------------------------------------------------------------

// Constants for the chart windows.

const (
	// DefaultSeriesCapacity bounds a chart window when the caller does not
	// set one. 100 points keeps sparkline-style charts cheap to redraw.
	DefaultSeriesCapacity = 100
)
