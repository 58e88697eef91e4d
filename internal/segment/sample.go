package segment

import (
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"github.com/garmentlab/huesplit/internal/color"
)

const (
	// maxFitSample bounds the point count handed to k-means when splitting
	// a masked region.
	maxFitSample = 20000
	// maxLayerSample bounds the fit sample for whole-image layering, which
	// clusters every pixel of the working image rather than a masked region.
	maxLayerSample = 50000
	// maxSilhouetteSample bounds the exact pairwise silhouette score.
	maxSilhouetteSample = 2000
)

// subsampleLAB returns at most max points, drawn without replacement by a
// partial Fisher-Yates shuffle on a copy. The rng makes the draw
// reproducible; inputs at or under the cap are returned as-is.
func subsampleLAB(points []color.LAB, max int, rng *rand.Rand) []color.LAB {
	if len(points) <= max {
		return points
	}
	cp := make([]color.LAB, len(points))
	copy(cp, points)
	for i := 0; i < max; i++ {
		j := i + rng.Intn(len(cp)-i)
		cp[i], cp[j] = cp[j], cp[i]
	}
	return cp[:max]
}

// meanChannelStd is the mean of the per-channel population standard
// deviations, the flatness measure that short-circuits clustering on
// near-uniform regions.
func meanChannelStd(points []color.LAB) float64 {
	if len(points) == 0 {
		return 0
	}
	ls := make([]float64, len(points))
	as := make([]float64, len(points))
	bs := make([]float64, len(points))
	for i, p := range points {
		ls[i] = p.L
		as[i] = p.A
		bs[i] = p.B
	}
	return (stat.PopStdDev(ls, nil) + stat.PopStdDev(as, nil) + stat.PopStdDev(bs, nil)) / 3
}
