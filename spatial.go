package main

import "math"

// SpatialGrid buckets points into square cells for broad-phase distance
// queries over the world rectangle. Points outside are clamped to the edge cells.
type SpatialGrid struct {
	minX, minY float64
	cellSize   float64
	cols, rows int
	cells      [][]spatialPoint
}

type spatialPoint struct {
	X, Y float64
}

// NewSpatialGrid covers [minX,maxX]×[minY,maxY] with cells of the given size
func NewSpatialGrid(minX, minY, maxX, maxY, cellSize float64) *SpatialGrid {
	cols := int(math.Ceil((maxX-minX)/cellSize)) + 1
	rows := int(math.Ceil((maxY-minY)/cellSize)) + 1
	return &SpatialGrid{
		minX:     minX,
		minY:     minY,
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    make([][]spatialPoint, cols*rows),
	}
}

// Clear resets all cells (keeps allocated capacity)
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

func (g *SpatialGrid) cellCoord(x, y float64) (int, int) {
	cx := int((x - g.minX) / g.cellSize)
	cy := int((y - g.minY) / g.cellSize)
	if cx < 0 {
		cx = 0
	} else if cx >= g.cols {
		cx = g.cols - 1
	}
	if cy < 0 {
		cy = 0
	} else if cy >= g.rows {
		cy = g.rows - 1
	}
	return cx, cy
}

// Insert adds a point
func (g *SpatialGrid) Insert(x, y float64) {
	cx, cy := g.cellCoord(x, y)
	idx := cy*g.cols + cx
	g.cells[idx] = append(g.cells[idx], spatialPoint{X: x, Y: y})
}

// QueryBuf appends the points of every cell overlapping the box around
// (x, y) to buf and returns the extended slice
func (g *SpatialGrid) QueryBuf(x, y, radius float64, buf []spatialPoint) []spatialPoint {
	minCX, minCY := g.cellCoord(x-radius, y-radius)
	maxCX, maxCY := g.cellCoord(x+radius, y+radius)
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			buf = append(buf, g.cells[cy*g.cols+cx]...)
		}
	}
	return buf
}

// AnyWithin reports whether some point lies at distance <= radius from (x, y)
func (g *SpatialGrid) AnyWithin(x, y, radius float64) bool {
	for _, p := range g.QueryBuf(x, y, radius, nil) {
		if math.Hypot(p.X-x, p.Y-y) <= radius {
			return true
		}
	}
	return false
}
