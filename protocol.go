package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Client -> Server message types
const (
	MsgCreateShip = "create_ship"
	MsgJoinShip   = "join_ship"
	MsgInput      = "input"
	MsgInteract   = "interact"
	MsgPlaceItem  = "place_item"
	MsgSendChat   = "send_chat"
)

// Server -> Client message types
const (
	MsgLobbyUpdate = "lobby_update"
	MsgInitPlayer  = "init_player"
)

var errUnknownMessage = errors.New("unknown message type")

// Inbound is the closed set of messages a client may send.
type Inbound interface {
	inbound()
}

type CreateShipMsg struct {
	Nickname string
	ShipName string
}

type JoinShipMsg struct {
	Nickname string
	ShipID   string
}

type InputMsg struct {
	Keys Keys
}

// Keys held by the client. Absent keys are not held.
type Keys struct {
	Up    bool `json:"up"`
	Down  bool `json:"down"`
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

type InteractMsg struct{}

// PlaceItemMsg keeps pointers so a missing field can be told apart from zero
type PlaceItemMsg struct {
	Slot, X, Y *int
}

type SendChatMsg struct {
	Text string
}

func (CreateShipMsg) inbound() {}
func (JoinShipMsg) inbound()   {}
func (InputMsg) inbound()      {}
func (InteractMsg) inbound()   {}
func (PlaceItemMsg) inbound()  {}
func (SendChatMsg) inbound()   {}

// inWire is the flat JSON shape of every inbound message, decoded in one pass
type inWire struct {
	Type     string `json:"type"`
	Nickname string `json:"nickname"`
	ShipName string `json:"shipName"`
	ShipID   string `json:"shipId"`
	Keys     Keys   `json:"keys"`
	Slot     *int   `json:"slot"`
	X        *int   `json:"x"`
	Y        *int   `json:"y"`
	Text     string `json:"text"`
}

// DecodeInbound parses one client message into its variant
func DecodeInbound(raw []byte) (Inbound, error) {
	var w inWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decoding message: %w", err)
	}
	switch w.Type {
	case MsgCreateShip:
		return CreateShipMsg{Nickname: w.Nickname, ShipName: w.ShipName}, nil
	case MsgJoinShip:
		return JoinShipMsg{Nickname: w.Nickname, ShipID: w.ShipID}, nil
	case MsgInput:
		return InputMsg{Keys: w.Keys}, nil
	case MsgInteract:
		return InteractMsg{}, nil
	case MsgPlaceItem:
		return PlaceItemMsg{Slot: w.Slot, X: w.X, Y: w.Y}, nil
	case MsgSendChat:
		return SendChatMsg{Text: w.Text}, nil
	}
	return nil, fmt.Errorf("%w: %q", errUnknownMessage, w.Type)
}

// ItemState is broadcast per item, on a grid or in an inventory slot
type ItemState struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// PlayerState is broadcast per player each tick
type PlayerState struct {
	X         float64      `json:"x"`
	Y         float64      `json:"y"`
	VX        float64      `json:"vx"`
	VY        float64      `json:"vy"`
	Nickname  string       `json:"nickname"`
	ShipID    string       `json:"ship_id"`
	Piloting  bool         `json:"piloting"`
	OnGround  bool         `json:"is_on_ground"`
	Color     string       `json:"color"`
	Inventory []*ItemState `json:"inventory"` // nil entries are empty slots
}

// ShipState is broadcast per ship each tick
type ShipState struct {
	WorldX       float64            `json:"world_x"`
	WorldY       float64            `json:"world_y"`
	VX           float64            `json:"vx"`
	VY           float64            `json:"vy"`
	Width        int                `json:"width"`
	Height       int                `json:"height"`
	Pilot        *string            `json:"pilot"`
	Components   map[string]GridPos `json:"components"`
	Grid         [][]int            `json:"grid"`
	ThrustX      int                `json:"thrust_dir_x"`
	ThrustY      int                `json:"thrust_dir_y"`
	Items        []ItemState        `json:"items_on_grid"`
	ChatMessages []ChatEntry        `json:"chat_messages"`
	Name         string             `json:"name"`
	ShortID      string             `json:"short_id"`
}

// WorldState is the full snapshot sent to admitted clients
type WorldState struct {
	Players map[string]PlayerState `json:"players"`
	Ships   map[string]ShipState   `json:"ships"`
}

// LobbyShip is one entry of the lobby list
type LobbyShip struct {
	ID           string `json:"id"`
	ShortID      string `json:"short_id"`
	Name         string `json:"name"`
	PlayersCount int    `json:"players_count"`
}

// LobbyUpdate is sent every broadcast tick to clients not yet on a ship
type LobbyUpdate struct {
	Type           string      `json:"type"`
	AvailableShips []LobbyShip `json:"availableShips"`
}

// InitPlayer is sent once, right after admission
type InitPlayer struct {
	Type         string     `json:"type"`
	PlayerID     string     `json:"playerId"`
	InitialState WorldState `json:"initialState"`
}

// ErrorMsg reports an admission failure, after which the connection is
// closed. The admin API reuses it for error bodies.
type ErrorMsg struct {
	Error string `json:"error"`
}

// encodeMsgpack encodes v using the json tags so both codecs share field names
func encodeMsgpack(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
