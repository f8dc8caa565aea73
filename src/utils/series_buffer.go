package utils

import (
	"sync"

	"rl-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// SeriesBuffer is a fixed-size circular buffer over chart points.
// Bounded FIFO - the window never exceeds its capacity!
// -----------------------------------------------------------------------------

type SeriesBuffer struct {
	mu       sync.RWMutex
	data     []models.MSeriesPoint
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewSeriesBuffer creates a new buffer with fixed capacity
func NewSeriesBuffer(capacity int) *SeriesBuffer {
	if capacity <= 0 {
		capacity = DefaultSeriesCapacity
	}

	return &SeriesBuffer{
		data:     make([]models.MSeriesPoint, capacity),
		capacity: capacity,
		index:    0,
		size:     0,
	}
}

// -----------------------------------------------------------------------------

// Append adds one point; when full the oldest point is evicted
func (sb *SeriesBuffer) Append(point models.MSeriesPoint) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.data[sb.index] = point
	sb.index = (sb.index + 1) % sb.capacity

	// Update size (never exceeds capacity)
	if sb.size < sb.capacity {
		sb.size++
	}
}

// -----------------------------------------------------------------------------

// Seed replaces the whole window with a historical snapshot, keeping only
// the newest points when the snapshot exceeds capacity. Subsequent Appends
// continue from the snapshot's tail.
func (sb *SeriesBuffer) Seed(points []models.MSeriesPoint) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	// Keep the tail of an oversized snapshot
	start := 0
	if len(points) > sb.capacity {
		start = len(points) - sb.capacity
	}
	kept := points[start:]

	sb.data = make([]models.MSeriesPoint, sb.capacity)
	copy(sb.data, kept)
	sb.size = len(kept)
	sb.index = sb.size % sb.capacity
}

// -----------------------------------------------------------------------------

// GetLatest returns the n newest points, oldest to newest
func (sb *SeriesBuffer) GetLatest(n int) []models.MSeriesPoint {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	if sb.size == 0 || n <= 0 {
		return []models.MSeriesPoint{}
	}

	count := n
	if n > sb.size {
		count = sb.size
	}

	result := make([]models.MSeriesPoint, count)

	// Latest data sits just behind the write index
	startIdx := (sb.index - count + sb.capacity) % sb.capacity

	for i := 0; i < count; i++ {
		result[i] = sb.data[(startIdx+i)%sb.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

// GetAll returns the window in insertion order (oldest to newest)
func (sb *SeriesBuffer) GetAll() []models.MSeriesPoint {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	if sb.size == 0 {
		return []models.MSeriesPoint{}
	}

	result := make([]models.MSeriesPoint, sb.size)

	// Oldest element: at the write index once full, else at zero
	var startIdx int
	if sb.size == sb.capacity {
		startIdx = sb.index
	} else {
		startIdx = 0
	}

	for i := 0; i < sb.size; i++ {
		result[i] = sb.data[(startIdx+i)%sb.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

// Last returns the newest point, or false when the window is empty
func (sb *SeriesBuffer) Last() (models.MSeriesPoint, bool) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	if sb.size == 0 {
		return models.MSeriesPoint{}, false
	}

	idx := (sb.index - 1 + sb.capacity) % sb.capacity
	return sb.data[idx], true
}

// -----------------------------------------------------------------------------

// Values returns the primary values of the window, oldest to newest
func (sb *SeriesBuffer) Values() []float64 {
	points := sb.GetAll()

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}

	return values
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (sb *SeriesBuffer) Size() int {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (sb *SeriesBuffer) Capacity() int {
	return sb.capacity
}

// -----------------------------------------------------------------------------

// IsFull returns whether the window reached capacity
func (sb *SeriesBuffer) IsFull() bool {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.size == sb.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the window
func (sb *SeriesBuffer) Clear() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.index = 0
	sb.size = 0
}
