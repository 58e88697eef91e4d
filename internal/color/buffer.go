package color

import (
	"image"
	"sync"
)

// LABBuffer converts an image into a flat row-major scaled-LAB buffer.
// The buffer is request-scoped scratch space: len = width*height, index =
// y*width + x.
func LABBuffer(img image.Image) (width, height int, buf []LAB) {
	bounds := img.Bounds()
	width = bounds.Dx()
	height = bounds.Dy()
	buf = make([]LAB, width*height)

	// Precompute via row bands to avoid per-pixel interface dispatch cost
	// dominating large images.
	parallelRows(height, func(sy, ey int) {
		for y := sy; y < ey; y++ {
			for x := 0; x < width; x++ {
				buf[y*width+x] = FromStdColor(img.At(bounds.Min.X+x, bounds.Min.Y+y)).ToLAB()
			}
		}
	})
	return width, height, buf
}

// parallelRows runs fn across row bands using multiple goroutines.
func parallelRows(h int, fn func(startY, endY int)) {
	numWorkers := 8
	rowsPerWorker := (h + numWorkers - 1) / numWorkers
	var wg sync.WaitGroup
	for worker := 0; worker < numWorkers; worker++ {
		startY := worker * rowsPerWorker
		endY := startY + rowsPerWorker
		if endY > h {
			endY = h
		}
		if startY >= h {
			break
		}
		wg.Add(1)
		go func(sy, ey int) {
			defer wg.Done()
			fn(sy, ey)
		}(startY, endY)
	}
	wg.Wait()
}
