package main

import "math"

// Player hitbox, in tiles. X is the body center, Y the feet.
const (
	playerHalfWidth  = 0.4
	playerBodyOffset = 0.5 // feet to body-center row
	playerHeadOffset = 1.0 // feet to head
)

// stepPlayer advances a walking avatar one tick against its ship's grid.
// Callers skip piloting players.
func stepPlayer(p *Player, s *Ship) {
	// Horizontal: probe the body row at the leading edge.
	nextX := p.X + p.VX
	row := int(math.Floor(p.Y - playerBodyOffset))
	if row >= 0 && row < s.Height {
		switch {
		case p.VX < 0 && blocksHorizontal(s, int(math.Floor(nextX-playerHalfWidth)), row):
			p.X = math.Floor(nextX-playerHalfWidth) + 1 + playerHalfWidth
			p.VX = 0
		case p.VX > 0 && blocksHorizontal(s, int(math.Floor(nextX+playerHalfWidth)), row):
			p.X = math.Floor(nextX+playerHalfWidth) - playerHalfWidth
			p.VX = 0
		default:
			p.X = nextX
		}
	}

	// Vertical: gravity always applies; the ground clamp undoes it.
	p.VY += Gravity
	nextY := p.Y + p.VY
	col := int(math.Floor(p.X))
	p.OnGround = false
	if col < 0 || col >= s.Width {
		return
	}
	if p.VY < 0 {
		head := int(math.Floor(nextY - playerHeadOffset))
		if head < 0 || s.solid(col, head) {
			p.VY = 0
			p.Y = float64(head + 2)
		} else {
			p.Y = nextY
		}
		return
	}
	feet := int(math.Floor(nextY))
	if feet >= s.Height || s.solid(col, feet) {
		p.VY = 0
		p.Y = float64(feet)
		p.OnGround = true
	} else {
		p.Y = nextY
	}
}

// blocksHorizontal treats columns outside the grid as walls
func blocksHorizontal(s *Ship, col, row int) bool {
	return col < 0 || col >= s.Width || s.solid(col, row)
}

// stepShip integrates ship velocity and keeps its hull inside the world
func stepShip(s *Ship) {
	s.WorldX += s.VX
	s.WorldY += s.VY

	halfW := float64(s.Width) * TileSize / 2
	halfH := float64(s.Height) * TileSize / 2
	s.WorldX = Clamp(s.WorldX, WorldMinX+halfW, WorldMaxX-halfW)
	s.WorldY = Clamp(s.WorldY, WorldMinY+halfH, WorldMaxY-halfH)
}
