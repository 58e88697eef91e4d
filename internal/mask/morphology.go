package mask

// CleanOptions controls the Clean pipeline.
type CleanOptions struct {
	// ClosingRadius is the radius of the square structuring element used for
	// morphological closing. 0 disables the closing step.
	ClosingRadius int
	// MinComponentArea drops connected components smaller than this many
	// pixels. 0 disables component removal.
	MinComponentArea int
	// FillHoles fills background regions not reachable from the mask border.
	FillHoles bool
}

// Clean applies the standard cleanup pipeline: closing (smooth), hole
// filling (solidify), then small-component removal (prune). The order
// matters; the result is idempotent on an already-clean mask.
func Clean(m *Mask, opts CleanOptions) *Mask {
	out := m
	if opts.ClosingRadius > 0 {
		out = Close(out, opts.ClosingRadius)
	}
	if opts.FillHoles {
		out = FillHoles(out)
	}
	if opts.MinComponentArea > 0 {
		out = RemoveSmallComponents(out, opts.MinComponentArea)
	}
	if out == m {
		out = m.Clone()
	}
	return out
}

// Close performs morphological closing (dilate then erode) with a square
// structuring element of the given radius. Closing fills gaps and thin
// fissures up to roughly 2*radius pixels wide.
func Close(m *Mask, radius int) *Mask {
	if radius <= 0 {
		return m.Clone()
	}
	return erode(dilate(m, radius), radius)
}

// Open performs morphological opening (erode then dilate) with a square
// structuring element of the given radius. Opening removes isolated
// specks and thin protrusions up to roughly 2*radius pixels wide.
func Open(m *Mask, radius int) *Mask {
	if radius <= 0 {
		return m.Clone()
	}
	return dilate(erode(m, radius), radius)
}

// dilate and erode use the separability of the square structuring element:
// a 1D horizontal pass followed by a 1D vertical pass.

func dilate(m *Mask, radius int) *Mask {
	return runWindow(m, radius, true)
}

func erode(m *Mask, radius int) *Mask {
	return runWindow(m, radius, false)
}

func runWindow(m *Mask, radius int, or bool) *Mask {
	w, h := m.Width, m.Height
	tmp := New(w, h)
	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			x0, x1 := x-radius, x+radius
			if x0 < 0 {
				x0 = 0
			}
			if x1 >= w {
				x1 = w - 1
			}
			v := !or
			for nx := x0; nx <= x1; nx++ {
				if m.Bits[row+nx] == or {
					v = or
					break
				}
			}
			tmp.Bits[row+x] = v
		}
	}
	out := New(w, h)
	for y := 0; y < h; y++ {
		y0, y1 := y-radius, y+radius
		if y0 < 0 {
			y0 = 0
		}
		if y1 >= h {
			y1 = h - 1
		}
		for x := 0; x < w; x++ {
			v := !or
			for ny := y0; ny <= y1; ny++ {
				if tmp.Bits[ny*w+x] == or {
					v = or
					break
				}
			}
			out.Bits[y*w+x] = v
		}
	}
	return out
}

// FillHoles fills interior holes: background pixels that cannot reach the
// mask border through other background pixels. Implemented as a 4-connected
// flood fill of the inverted mask seeded from every border background pixel;
// whatever the flood does not reach is a hole and becomes foreground.
func FillHoles(m *Mask) *Mask {
	w, h := m.Width, m.Height
	if w == 0 || h == 0 {
		return m.Clone()
	}
	reachable := make([]bool, w*h)
	queue := make([]int, 0, 2*(w+h))

	seed := func(x, y int) {
		i := y*w + x
		if !m.Bits[i] && !reachable[i] {
			reachable[i] = true
			queue = append(queue, i)
		}
	}
	for x := 0; x < w; x++ {
		seed(x, 0)
		seed(x, h-1)
	}
	for y := 0; y < h; y++ {
		seed(0, y)
		seed(w-1, y)
	}

	for len(queue) > 0 {
		i := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		x, y := i%w, i/w
		for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
			nx, ny := x+d[0], y+d[1]
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				continue
			}
			ni := ny*w + nx
			if !m.Bits[ni] && !reachable[ni] {
				reachable[ni] = true
				queue = append(queue, ni)
			}
		}
	}

	out := m.Clone()
	for i := range out.Bits {
		if !out.Bits[i] && !reachable[i] {
			out.Bits[i] = true
		}
	}
	return out
}

// RemoveSmallComponents drops every 8-connected foreground component with
// fewer than minArea pixels.
func RemoveSmallComponents(m *Mask, minArea int) *Mask {
	if minArea <= 1 {
		return m.Clone()
	}
	labels, sizes := Components(m)
	out := New(m.Width, m.Height)
	for i, l := range labels {
		if l >= 0 && sizes[l] >= minArea {
			out.Bits[i] = true
		}
	}
	return out
}

// Components labels the 8-connected foreground components of the mask.
// It returns a label per pixel (-1 for background, otherwise a 0-based
// component id) and the pixel count of each component. The traversal uses
// an explicit queue, never recursion.
func Components(m *Mask) (labels []int, sizes []int) {
	w, h := m.Width, m.Height
	labels = make([]int, w*h)
	for i := range labels {
		labels[i] = -1
	}

	var queue []int
	for start := 0; start < w*h; start++ {
		if !m.Bits[start] || labels[start] != -1 {
			continue
		}
		id := len(sizes)
		labels[start] = id
		size := 0
		queue = append(queue[:0], start)

		for len(queue) > 0 {
			i := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			size++
			x, y := i%w, i/w
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					ni := ny*w + nx
					if m.Bits[ni] && labels[ni] == -1 {
						labels[ni] = id
						queue = append(queue, ni)
					}
				}
			}
		}
		sizes = append(sizes, size)
	}
	return labels, sizes
}
