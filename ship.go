package main

import "fmt"

const (
	TileSize        = 40.0
	ShipGridWidth   = 10
	ShipGridHeight  = 10
	ShipSpeed       = 3.0 // world units per tick
	MaxChatMessages = 10
	MaxChatLen      = 100
	MaxShipNameLen  = 20
	DefaultShipName = "Unnamed ship"
	SystemNick      = "System"
)

// Tile kinds stored in Ship.Grid
const (
	TileEmpty      = 0
	TileWall       = 1
	TileMarker     = 2
	TileCargoHatch = 3
)

const (
	ComponentHelm  = "helm"
	ItemCargoHatch = "cargo_hatch"
)

// GridPos is an integer tile coordinate
type GridPos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Item is a loose object, either lying on a ship grid or held in an inventory slot
type Item struct {
	ID   string
	Type string
	X, Y int
}

// Ship is one vessel: world kinematics plus a walkable tile interior
type Ship struct {
	ID      string
	ShortID string
	Name    string

	WorldX, WorldY float64
	VX, VY         float64
	Width, Height  int

	Grid       [][]int // [row][col]
	Components map[string]GridPos
	Items      []*Item

	Pilot            string // player ID, "" when nobody is at the helm
	ThrustX, ThrustY int    // exhaust direction, for client effects only

	Chat *ChatLog
}

// NewShip creates a ship with the default hull, helm and starter cargo
func NewShip(id, shortID, name string, x, y float64) *Ship {
	return &Ship{
		ID:      id,
		ShortID: shortID,
		Name:    name,
		WorldX:  x,
		WorldY:  y,
		Width:   ShipGridWidth,
		Height:  ShipGridHeight,
		Grid:    defaultShipGrid(ShipGridWidth, ShipGridHeight),
		Components: map[string]GridPos{
			ComponentHelm: {X: 5, Y: ShipGridHeight - 2},
		},
		Items: []*Item{
			{ID: GenerateID(), Type: ItemCargoHatch, X: 1, Y: ShipGridHeight - 2},
		},
		Chat: NewChatLog(MaxChatMessages),
	}
}

// defaultShipGrid is a walled box with two marker tiles on opposite corners
func defaultShipGrid(w, h int) [][]int {
	grid := make([][]int, h)
	for y := range grid {
		grid[y] = make([]int, w)
		for x := range grid[y] {
			if y == 0 || y == h-1 || x == 0 || x == w-1 {
				grid[y][x] = TileWall
			}
		}
	}
	grid[h-1][0] = TileMarker
	grid[0][w-1] = TileMarker
	return grid
}

func (s *Ship) inBounds(x, y int) bool {
	return x >= 0 && x < s.Width && y >= 0 && y < s.Height
}

// solid reports whether (x, y) is an in-grid tile that blocks movement
func (s *Ship) solid(x, y int) bool {
	return s.inBounds(x, y) && s.Grid[y][x] > TileEmpty
}

// releasePilot clears the helm and stops the ship
func (s *Ship) releasePilot() {
	s.Pilot = ""
	s.VX, s.VY = 0, 0
	s.ThrustX, s.ThrustY = 0, 0
}

func (s *Ship) announce(format string, args ...any) {
	s.Chat.Append(ChatEntry{Nick: SystemNick, Text: fmt.Sprintf(format, args...)})
}

// ToState converts to protocol state. The result shares no memory with s.
func (s *Ship) ToState() ShipState {
	grid := make([][]int, len(s.Grid))
	for y, row := range s.Grid {
		grid[y] = append([]int(nil), row...)
	}
	comps := make(map[string]GridPos, len(s.Components))
	for k, v := range s.Components {
		comps[k] = v
	}
	items := make([]ItemState, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, it.ToState())
	}
	var pilot *string
	if s.Pilot != "" {
		p := s.Pilot
		pilot = &p
	}
	return ShipState{
		WorldX:       s.WorldX,
		WorldY:       s.WorldY,
		VX:           s.VX,
		VY:           s.VY,
		Width:        s.Width,
		Height:       s.Height,
		Pilot:        pilot,
		Components:   comps,
		Grid:         grid,
		ThrustX:      s.ThrustX,
		ThrustY:      s.ThrustY,
		Items:        items,
		ChatMessages: s.Chat.Entries(),
		Name:         s.Name,
		ShortID:      s.ShortID,
	}
}

func (it *Item) ToState() ItemState {
	return ItemState{ID: it.ID, Type: it.Type, X: it.X, Y: it.Y}
}
