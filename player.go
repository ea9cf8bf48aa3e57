package main

const (
	PlayerSpeed     = 0.1   // tiles per tick
	Gravity         = 0.01  // tiles/tick²
	JumpStrength    = -0.15 // initial vertical velocity of a jump
	InventorySize   = 5
	InteractRadius  = 2.0 // tiles
	MaxNicknameLen  = 15
	DefaultNickname = "Player"
)

// Player is a connected user's avatar. Position is in the owning ship's
// tile space: X is the body center, Y is the feet.
type Player struct {
	ID       string
	Nickname string
	ShipID   string
	X, Y     float64
	VX, VY   float64
	OnGround bool
	Piloting bool
	Color    string

	Inventory [InventorySize]*Item
}

// NewPlayer places a player at the ship's spawn point
func NewPlayer(id, nickname string, ship *Ship, color string) *Player {
	return &Player{
		ID:       id,
		Nickname: nickname,
		ShipID:   ship.ID,
		X:        float64(ship.Width) / 2,
		Y:        float64(ship.Height - 2),
		Color:    color,
	}
}

// freeSlot returns the first empty inventory slot, or -1
func (p *Player) freeSlot() int {
	for i, it := range p.Inventory {
		if it == nil {
			return i
		}
	}
	return -1
}

// ToState converts to protocol state
func (p *Player) ToState() PlayerState {
	inv := make([]*ItemState, InventorySize)
	for i, it := range p.Inventory {
		if it != nil {
			s := it.ToState()
			inv[i] = &s
		}
	}
	return PlayerState{
		X:         p.X,
		Y:         p.Y,
		VX:        p.VX,
		VY:        p.VY,
		Nickname:  p.Nickname,
		ShipID:    p.ShipID,
		Piloting:  p.Piloting,
		OnGround:  p.OnGround,
		Color:     p.Color,
		Inventory: inv,
	}
}
