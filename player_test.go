package main

import (
	"encoding/json"
	"testing"
)

func TestNewPlayerSpawnPoint(t *testing.T) {
	s := testShip()
	p := NewPlayer("p1", "tester", s, "hsl(10, 100%, 75%)")

	if p.X != float64(s.Width)/2 || p.Y != float64(s.Height-2) {
		t.Errorf("expected spawn at (%v, %v), got (%v, %v)", float64(s.Width)/2, s.Height-2, p.X, p.Y)
	}
	if p.VX != 0 || p.VY != 0 || p.Piloting || p.OnGround {
		t.Errorf("expected a resting, non-piloting player, got %+v", p)
	}
	if p.ShipID != s.ID {
		t.Errorf("expected ship %q, got %q", s.ID, p.ShipID)
	}
	if p.freeSlot() != 0 {
		t.Errorf("expected empty inventory, first free slot %d", p.freeSlot())
	}
}

func TestPlayerFreeSlot(t *testing.T) {
	p := NewPlayer("p1", "tester", testShip(), "")
	for i := 0; i < InventorySize; i++ {
		if got := p.freeSlot(); got != i {
			t.Fatalf("freeSlot() = %d, want %d", got, i)
		}
		p.Inventory[i] = &Item{ID: "it", Type: ItemCargoHatch}
	}
	if got := p.freeSlot(); got != -1 {
		t.Errorf("full inventory: freeSlot() = %d, want -1", got)
	}

	p.Inventory[2] = nil
	if got := p.freeSlot(); got != 2 {
		t.Errorf("freeSlot() = %d, want 2", got)
	}
}

func TestPlayerStateInventoryNulls(t *testing.T) {
	p := NewPlayer("p1", "tester", testShip(), "hsl(0, 100%, 75%)")
	p.Inventory[1] = &Item{ID: "it-1", Type: ItemCargoHatch, X: 1, Y: 8}

	raw, err := json.Marshal(p.ToState())
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	inv, ok := m["inventory"].([]any)
	if !ok || len(inv) != InventorySize {
		t.Fatalf("expected %d inventory slots, got %v", InventorySize, m["inventory"])
	}
	if inv[0] != nil {
		t.Errorf("empty slot should encode as null, got %v", inv[0])
	}
	item, ok := inv[1].(map[string]any)
	if !ok || item["type"] != ItemCargoHatch {
		t.Errorf("slot 1 = %v, want a cargo hatch", inv[1])
	}
	for _, key := range []string{"x", "y", "vx", "vy", "nickname", "ship_id", "piloting", "is_on_ground", "color"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing field %q", key)
		}
	}
}
