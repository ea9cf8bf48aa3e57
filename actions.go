package main

import (
	"errors"
	"slices"
	"strings"
	"unicode/utf8"
)

var errActionIgnored = errors.New("action ignored")

// Apply performs one post-admission action atomically. Rejected actions
// leave the world untouched and return errActionIgnored.
func (w *World) Apply(playerID string, msg Inbound) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.players[playerID]
	if !ok {
		return ErrNotAdmitted
	}
	ship, ok := w.ships[p.ShipID]
	if !ok {
		return errActionIgnored
	}

	switch m := msg.(type) {
	case InputMsg:
		applyInput(p, ship, m.Keys)
		return nil
	case InteractMsg:
		interact(p, ship)
		return nil
	case PlaceItemMsg:
		return placeItem(p, ship, m)
	case SendChatMsg:
		return sendChat(p, ship, m.Text)
	}
	return errActionIgnored
}

// applyInput steers the ship when piloting, otherwise runs and jumps.
// Opposite keys resolve to the one checked later: down over up, right over left.
func applyInput(p *Player, s *Ship, k Keys) {
	if p.Piloting {
		s.VX, s.VY = 0, 0
		s.ThrustX, s.ThrustY = 0, 0
		if k.Up {
			s.VY, s.ThrustY = -ShipSpeed, 1
		}
		if k.Down {
			s.VY, s.ThrustY = ShipSpeed, -1
		}
		if k.Left {
			s.VX, s.ThrustX = -ShipSpeed, 1
		}
		if k.Right {
			s.VX, s.ThrustX = ShipSpeed, -1
		}
		return
	}

	switch {
	case k.Right:
		p.VX = PlayerSpeed
	case k.Left:
		p.VX = -PlayerSpeed
	default:
		p.VX = 0
	}
	if k.Up && p.OnGround {
		p.VY = JumpStrength
	}
}

// interact picks up the first reachable item if a slot is free; failing
// that it toggles the helm.
func interact(p *Player, s *Ship) {
	for i, it := range s.Items {
		if !withinReach(p.X-(float64(it.X)+0.5), p.Y-(float64(it.Y)+1)) {
			continue
		}
		if slot := p.freeSlot(); slot >= 0 {
			p.Inventory[slot] = it
			s.Items = slices.Delete(s.Items, i, i+1)
			return
		}
	}

	if p.Piloting {
		p.Piloting = false
		if s.Pilot == p.ID {
			s.releasePilot()
		}
		return
	}
	helm, ok := s.Components[ComponentHelm]
	if !ok || s.Pilot != "" {
		return
	}
	if withinReach(p.X-float64(helm.X), p.Y-float64(helm.Y)) {
		p.Piloting = true
		s.Pilot = p.ID
	}
}

// placeItem turns a held cargo hatch into a hatch tile on an empty cell
func placeItem(p *Player, s *Ship, m PlaceItemMsg) error {
	if m.Slot == nil || m.X == nil || m.Y == nil {
		return errActionIgnored
	}
	slot, x, y := *m.Slot, *m.X, *m.Y
	if slot < 0 || slot >= InventorySize {
		return errActionIgnored
	}
	it := p.Inventory[slot]
	if it == nil || !s.inBounds(x, y) || s.Grid[y][x] != TileEmpty {
		return errActionIgnored
	}
	if it.Type != ItemCargoHatch {
		return errActionIgnored
	}
	s.Grid[y][x] = TileCargoHatch
	p.Inventory[slot] = nil
	return nil
}

func sendChat(p *Player, s *Ship, text string) error {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n == 0 || n > MaxChatLen {
		return errActionIgnored
	}
	s.Chat.Append(ChatEntry{Nick: p.Nickname, Text: text})
	return nil
}
