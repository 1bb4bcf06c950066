package pool

import "sync"

var float64SlicePool = sync.Pool{
	New: func() any { return &[]float64{} },
}

// GetFloat64Slice retrieves an empty float64 slice with at least the given capacity.
//
// The caller must call the returned cleanup function once the slice, and every
// slice derived from it, is no longer used.
//
// Example:
//
//	values, cleanup := pool.GetFloat64Slice(64)
//	defer cleanup()
//	values = append(values, x, y)
func GetFloat64Slice(capacity int) ([]float64, func()) {
	ptr, _ := float64SlicePool.Get().(*[]float64)
	slice := (*ptr)[:0]

	if cap(slice) < capacity {
		slice = make([]float64, 0, capacity)
	}

	return slice, func() {
		*ptr = slice[:0]
		float64SlicePool.Put(ptr)
	}
}
