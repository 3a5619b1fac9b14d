package render

import (
	"math"
)

// Scene describes the viewport onto the Mandelbrot set.
type Scene struct {
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Scale   float64 `json:"scale"` // width of the view in the complex plane
	MaxIter int     `json:"max_iter"`
}

// DefaultScene frames the whole set.
func DefaultScene() Scene {
	return Scene{
		CenterX: -0.5,
		CenterY: 0,
		Scale:   3.0,
		MaxIter: 256,
	}
}

// Zoom returns the scene scaled by factor around its center.
func (s Scene) Zoom(factor float64) Scene {
	if factor > 0 {
		s.Scale /= factor
	}
	return s
}

// escape returns the smoothed escape time of c, or -1 for points that
// never escape within MaxIter iterations.
func (s Scene) escape(cr, ci float64) float64 {
	var zr, zi float64
	for i := range s.MaxIter {
		zr2, zi2 := zr*zr, zi*zi
		if zr2+zi2 > 4 {
			// Continuous coloring from the final magnitude.
			return float64(i) + 1 - math.Log2(math.Log(zr2+zi2)/2)
		}
		zi = 2*zr*zi + ci
		zr = zr2 - zi2 + cr
	}
	return -1
}

// shadeRow fills escape with the escape times of row y.
func (s Scene) shadeRow(escape []float64, y, width, height int) {
	aspect := float64(height) / float64(width)
	ci := s.CenterY + (float64(y)/float64(height)-0.5)*s.Scale*aspect
	for x := range escape {
		cr := s.CenterX + (float64(x)/float64(width)-0.5)*s.Scale
		escape[x] = s.escape(cr, ci)
	}
}

// colorize maps escape times to RGBA bytes.
func (s Scene) colorize(row []uint8, escape []float64) {
	for x, mu := range escape {
		px := row[x*bytesPerPixel : (x+1)*bytesPerPixel]
		px[3] = 0xff
		if mu < 0 {
			px[0], px[1], px[2] = 0, 0, 0
			continue
		}
		t := mu / float64(s.MaxIter)
		px[0] = channel(9 * (1 - t) * t * t * t)
		px[1] = channel(15 * (1 - t) * (1 - t) * t * t)
		px[2] = channel(8.5 * (1 - t) * (1 - t) * (1 - t) * t)
	}
}

func channel(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
