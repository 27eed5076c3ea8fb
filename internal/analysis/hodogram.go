package analysis

import (
	"math"
	"strings"
)

// Point is one (ux, uz) sample of a particle motion path.
type Point struct{ X, Z float64 }

// ParticleMotion pairs the horizontal and vertical displacement of a
// trace. P arrivals trace a line along the propagation direction and S
// arrivals one across it.
func ParticleMotion(tr *Trace) []Point {
	points := make([]Point, len(tr.UX))
	for i := range points {
		points[i] = Point{X: tr.UX[i], Z: tr.UZ[i]}
	}
	return points
}

// Linearity is 1 - λmin/λmax of the covariance of the path: 1 for purely
// linear motion, 0 for circular motion or an empty path.
func Linearity(points []Point) float64 {
	if len(points) < 2 {
		return 0
	}
	var mx, mz float64
	for _, p := range points {
		mx += p.X
		mz += p.Z
	}
	n := float64(len(points))
	mx /= n
	mz /= n

	var sxx, szz, sxz float64
	for _, p := range points {
		dx, dz := p.X-mx, p.Z-mz
		sxx += dx * dx
		szz += dz * dz
		sxz += dx * dz
	}
	tr := sxx + szz
	if tr == 0 {
		return 0
	}
	disc := math.Sqrt((sxx-szz)*(sxx-szz) + 4*sxz*sxz)
	lmax := (tr + disc) / 2
	lmin := (tr - disc) / 2
	return 1 - lmin/lmax
}

// HodogramToASCII plots a particle motion path with ux across and uz
// down, matching the depth axis of the wavefield.
func HodogramToASCII(points []Point, width, height int) string {
	if len(points) == 0 || width < 2 || height < 2 {
		return ""
	}

	// symmetric bounds so the origin sits in the middle
	var extent float64
	for _, p := range points {
		extent = math.Max(extent, math.Max(math.Abs(p.X), math.Abs(p.Z)))
	}
	if extent == 0 {
		extent = 1
	}
	extent *= 1.1

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	midCol := (width - 1) / 2
	midRow := (height - 1) / 2
	for row := 0; row < height; row++ {
		canvas[row][midCol] = '│'
	}
	for col := 0; col < width; col++ {
		canvas[midRow][col] = '─'
	}
	canvas[midRow][midCol] = '┼'

	for _, p := range points {
		col := int(math.Round((p.X/extent + 1) / 2 * float64(width-1)))
		row := int(math.Round((p.Z/extent + 1) / 2 * float64(height-1)))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
