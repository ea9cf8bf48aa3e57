package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	TickRate     = 60 // simulation and broadcast ticks per second
	TickDuration = time.Second / TickRate
)

// World bounds, in world units
const (
	WorldMinX = -2000
	WorldMaxX = 2000
	WorldMinY = -2000
	WorldMaxY = 2000
)

// Ship spawn placement
const (
	SpawnInset     = 200
	SpawnAttempts  = 100
	SpawnClearance = TileSize * ShipGridWidth * 1.5
)

var (
	ErrShipNotFound = errors.New("the selected ship does not exist or is unavailable")
	ErrNotAdmitted  = errors.New("player is not on a ship")
)

// World is the shared simulation state. One mutex covers every atomic
// transition: a whole tick, a whole inbound message, a snapshot.
type World struct {
	mu        sync.Mutex
	players   map[string]*Player
	ships     map[string]*Ship
	shipOrder []string // creation order, for a stable lobby list
	spawnGrid *SpatialGrid
	rng       *rand.Rand
	tick      uint64

	log     *zap.SugaredLogger
	metrics *Metrics
}

type WorldOption func(*World)

// WithRand fixes the random source, for reproducible spawns and codes
func WithRand(r *rand.Rand) WorldOption {
	return func(w *World) { w.rng = r }
}

func WithMetrics(m *Metrics) WorldOption {
	return func(w *World) { w.metrics = m }
}

// NewWorld creates an empty world
func NewWorld(logger *zap.SugaredLogger, opts ...WorldOption) *World {
	w := &World{
		players:   make(map[string]*Player),
		ships:     make(map[string]*Ship),
		spawnGrid: NewSpatialGrid(WorldMinX, WorldMinY, WorldMaxX, WorldMaxY, SpawnClearance),
		log:       logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.rng == nil {
		w.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if w.metrics == nil {
		w.metrics = &Metrics{}
	}
	return w
}

func (w *World) Metrics() *Metrics { return w.metrics }

// Run steps the simulation at TickRate until ctx is done
func (w *World) Run(ctx context.Context) {
	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			w.Step()
			w.metrics.AddTick(time.Since(start).Nanoseconds())
		case <-ctx.Done():
			return
		}
	}
}

// Step runs one simulation tick over every player and ship
func (w *World) Step() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.tick++
	for _, p := range w.players {
		if p.Piloting {
			p.VX, p.VY = 0, 0
			continue
		}
		ship, ok := w.ships[p.ShipID]
		if !ok {
			continue
		}
		stepPlayer(p, ship)
	}
	for _, s := range w.ships {
		stepShip(s)
	}
}

// Admission is the result of a successful create or join
type Admission struct {
	PlayerID string
	ShipID   string
	State    WorldState // taken atomically with the join
}

// CreateShip spawns a new ship and puts a new player aboard it.
// Names must already be cleaned by the caller.
func (w *World) CreateShip(nickname, shipName string) Admission {
	w.mu.Lock()
	defer w.mu.Unlock()

	x, y := w.pickSpawnLocked()
	ship := NewShip(GenerateID(), w.shortIDLocked(), shipName, x, y)
	ship.announce("Ship '%s' (%s) created.", ship.Name, ship.ShortID)
	w.ships[ship.ID] = ship
	w.shipOrder = append(w.shipOrder, ship.ID)
	w.log.Infow("ship created", "ship", ship.ID, "short_id", ship.ShortID, "name", ship.Name, "x", x, "y", y)

	return w.joinLocked(nickname, ship)
}

// JoinShip puts a new player aboard an existing ship
func (w *World) JoinShip(nickname, shipID string) (Admission, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ship, ok := w.ships[shipID]
	if !ok || shipID == "" {
		return Admission{}, ErrShipNotFound
	}
	return w.joinLocked(nickname, ship), nil
}

func (w *World) joinLocked(nickname string, ship *Ship) Admission {
	color := fmt.Sprintf("hsl(%d, 100%%, 75%%)", w.rng.IntN(361))
	p := NewPlayer(GenerateID(), nickname, ship, color)
	w.players[p.ID] = p
	ship.announce("Player '%s' joined.", nickname)
	w.log.Infow("player joined", "player", p.ID, "nickname", nickname, "ship", ship.ID)

	return Admission{PlayerID: p.ID, ShipID: ship.ID, State: w.stateLocked()}
}

// RemovePlayer deletes a player, releasing the helm if they held it.
// It returns the ship the player was on, "" if the player was unknown.
func (w *World) RemovePlayer(playerID string) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.players[playerID]
	if !ok {
		return ""
	}
	if ship, ok := w.ships[p.ShipID]; ok {
		ship.announce("Player '%s' disconnected.", p.Nickname)
		if p.Piloting && ship.Pilot == p.ID {
			ship.releasePilot()
		}
	}
	delete(w.players, playerID)
	w.log.Infow("player removed", "player", playerID, "nickname", p.Nickname, "ship", p.ShipID)
	return p.ShipID
}

// pickSpawnLocked samples integer positions inside the inset bounds and
// takes the first one clear of every ship. After SpawnAttempts misses it
// settles for the last sample.
func (w *World) pickSpawnLocked() (float64, float64) {
	w.spawnGrid.Clear()
	for _, s := range w.ships {
		w.spawnGrid.Insert(s.WorldX, s.WorldY)
	}

	loX, hiX := WorldMinX+SpawnInset, WorldMaxX-SpawnInset
	loY, hiY := WorldMinY+SpawnInset, WorldMaxY-SpawnInset
	var x, y float64
	for attempt := 0; attempt < SpawnAttempts; attempt++ {
		x = float64(loX + w.rng.IntN(hiX-loX+1))
		y = float64(loY + w.rng.IntN(hiY-loY+1))
		if !w.spawnGrid.AnyWithin(x, y, SpawnClearance) {
			return x, y
		}
	}
	w.log.Warnw("no clear spawn position, overlapping", "x", x, "y", y, "ships", len(w.ships))
	return x, y
}

func (w *World) shortIDLocked() string {
	b := make([]byte, 8)
	for i := range b {
		b[i] = shortIDAlphabet[w.rng.IntN(len(shortIDAlphabet))]
	}
	return string(b)
}

// stateLocked deep-copies the world into its protocol form
func (w *World) stateLocked() WorldState {
	st := WorldState{
		Players: make(map[string]PlayerState, len(w.players)),
		Ships:   make(map[string]ShipState, len(w.ships)),
	}
	for id, p := range w.players {
		st.Players[id] = p.ToState()
	}
	for id, s := range w.ships {
		st.Ships[id] = s.ToState()
	}
	return st
}

func (w *World) lobbyLocked() []LobbyShip {
	counts := make(map[string]int, len(w.ships))
	for _, p := range w.players {
		counts[p.ShipID]++
	}
	list := make([]LobbyShip, 0, len(w.shipOrder))
	for _, id := range w.shipOrder {
		s, ok := w.ships[id]
		if !ok {
			continue
		}
		list = append(list, LobbyShip{
			ID:           s.ID,
			ShortID:      s.ShortID,
			Name:         s.Name,
			PlayersCount: counts[id],
		})
	}
	return list
}

// Snapshot returns a consistent copy of the whole world
func (w *World) Snapshot() WorldState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

// Lobby returns the ship list shown to clients that are not aboard
func (w *World) Lobby() []LobbyShip {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lobbyLocked()
}

// Frames holds one broadcast tick's encoded payloads
type Frames struct {
	State     []byte // JSON world snapshot
	StatePack []byte // msgpack world snapshot, only when requested
	Lobby     []byte // JSON lobby_update
}

// Frames captures the world once and reports, per player ID, whether that
// player is live. Encoding happens after the lock is released.
func (w *World) Frames(playerIDs []string, withPack bool) (Frames, []bool, error) {
	live := make([]bool, len(playerIDs))
	anyLive := false

	w.mu.Lock()
	for i, id := range playerIDs {
		if id == "" {
			continue
		}
		if _, ok := w.players[id]; ok {
			live[i] = true
			anyLive = true
		}
	}
	lobby := LobbyUpdate{Type: MsgLobbyUpdate, AvailableShips: w.lobbyLocked()}
	var state WorldState
	if anyLive {
		state = w.stateLocked()
	}
	w.mu.Unlock()

	var f Frames
	var err error
	if f.Lobby, err = json.Marshal(lobby); err != nil {
		return f, live, fmt.Errorf("encoding lobby: %w", err)
	}
	if !anyLive {
		return f, live, nil
	}
	if f.State, err = json.Marshal(state); err != nil {
		return f, live, fmt.Errorf("encoding state: %w", err)
	}
	if withPack {
		if f.StatePack, err = encodeMsgpack(state); err != nil {
			return f, live, fmt.Errorf("encoding msgpack state: %w", err)
		}
	}
	return f, live, nil
}

// Counts returns the number of players and ships
func (w *World) Counts() (players, ships int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.players), len(w.ships)
}

// HasShip reports whether a ship with this ID exists
func (w *World) HasShip(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.ships[id]
	return ok
}
