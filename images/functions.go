package images

import (
	"runtime"
	"sync"
)

// Clamp restricts a value to the specified range [min, max].
//
// Arguments:
// - value: The value to clamp.
// - min: The minimum allowed value.
// - max: The maximum allowed value.
//
// Returns:
// - The clamped value.
//
// @example
// clamped := Clamp(1.0000001, 0, 1) // Returns 1
// clamped := Clamp(-10.0, 0, 255)   // Returns 0
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Parallel splits the range [0, dataSize) into contiguous, disjoint
// partitions and runs fn on each in its own goroutine, so callers can write
// results by index without further synchronisation. It returns once every
// partition is done.
//
// When dataSize is below twice GOMAXPROCS there is not enough work to share:
// fn runs once over the whole range on the calling goroutine.
//
// Arguments:
// - dataSize: The size of the data to process.
// - fn: Function to execute for each partition (receives start and end indices).
//
// @example
//
//	Parallel(height, func(start, end int) {
//	    for y := start; y < end; y++ {
//	        // Process row y
//	    }
//	})
func Parallel(dataSize int, fn func(partStart, partEnd int)) {
	if dataSize <= 0 {
		return
	}

	workers := runtime.GOMAXPROCS(0)
	if dataSize < workers*2 {
		fn(0, dataSize)
		return
	}

	partSize := dataSize / workers

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := range workers {
		start := i * partSize
		end := start + partSize
		if i == workers-1 {
			end = dataSize
		}

		go func() {
			defer wg.Done()
			fn(start, end)
		}()
	}
	wg.Wait()
}
