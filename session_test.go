package main

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
)

type trackedEvent struct {
	Type, ShipID, PlayerID, Data string
}

// recordingTracker captures analytics events in memory
type recordingTracker struct {
	mu     sync.Mutex
	events []trackedEvent
}

func (r *recordingTracker) Track(evtType, shipID, playerID, data string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, trackedEvent{evtType, shipID, playerID, data})
}

func (r *recordingTracker) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recordingTracker) last() trackedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func newTestSession(t *testing.T, w *World) (*Session, *mockBroadcaster, *recordingTracker) {
	t.Helper()
	out := &mockBroadcaster{}
	tr := &recordingTracker{}
	return NewSession(w, out, tr, zap.NewNop().Sugar()), out, tr
}

func TestSessionCreateShip(t *testing.T) {
	w := newTestWorld(t, 21)
	s, out, tr := newTestSession(t, w)

	err := s.HandleMessage([]byte(`{"type":"create_ship","nickname":"  ","shipName":"` + strings.Repeat("x", 30) + `"}`))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if s.PlayerID() == "" {
		t.Fatal("expected session admitted")
	}

	msgs := out.sent()
	if len(msgs) != 1 {
		t.Fatalf("expected exactly one init message, got %d", len(msgs))
	}
	ip, ok := msgs[0].(InitPlayer)
	if !ok || ip.Type != MsgInitPlayer || ip.PlayerID != s.PlayerID() {
		t.Fatalf("unexpected init message %+v", msgs[0])
	}
	p := ip.InitialState.Players[ip.PlayerID]
	if p.Nickname != DefaultNickname {
		t.Errorf("blank nickname should default, got %q", p.Nickname)
	}
	ship := ip.InitialState.Ships[p.ShipID]
	if ship.Name != strings.Repeat("x", MaxShipNameLen) {
		t.Errorf("ship name should be truncated, got %q", ship.Name)
	}

	if got := tr.types(); len(got) != 2 || got[0] != EvtShipCreated || got[1] != EvtPlayerJoined {
		t.Errorf("tracked %v", got)
	}
}

func TestSessionJoinUnknownShip(t *testing.T) {
	w := newTestWorld(t, 22)
	s, out, tr := newTestSession(t, w)

	err := s.HandleMessage([]byte(`{"type":"join_ship","nickname":"bob","shipId":"missing"}`))
	if !errors.Is(err, ErrShipNotFound) || !IsAdmissionError(err) {
		t.Fatalf("err = %v, want ErrShipNotFound", err)
	}
	msgs := out.sent()
	if len(msgs) != 1 {
		t.Fatalf("expected one error message, got %d", len(msgs))
	}
	if em, ok := msgs[0].(ErrorMsg); !ok || em.Error != ErrShipNotFound.Error() {
		t.Errorf("unexpected message %+v", msgs[0])
	}
	if s.PlayerID() != "" {
		t.Error("failed join must not admit")
	}
	if players, _ := w.Counts(); players != 0 {
		t.Errorf("failed join created %d players", players)
	}
	if got := tr.types(); len(got) != 1 || got[0] != EvtAdmissionFailed {
		t.Errorf("tracked %v", got)
	}
}

func TestSessionInvalidFirstMessageStaysInLobby(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{{{`},
		{"unknown type", `{"type":"dance"}`},
		{"action before admission", `{"type":"interact"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorld(t, 23)
			s, out, _ := newTestSession(t, w)

			if err := s.HandleMessage([]byte(tt.raw)); err != nil {
				t.Fatalf("HandleMessage: %v", err)
			}
			// the admission chance is spent; a later create is ignored too
			if err := s.HandleMessage([]byte(`{"type":"create_ship","nickname":"late"}`)); err != nil {
				t.Fatalf("HandleMessage: %v", err)
			}
			if s.PlayerID() != "" || len(out.sent()) != 0 {
				t.Error("session should remain in the lobby")
			}
			if _, ships := w.Counts(); ships != 0 {
				t.Error("no ship should be created")
			}
		})
	}
}

func TestSessionActionsAfterAdmission(t *testing.T) {
	w := newTestWorld(t, 24)
	s, _, tr := newTestSession(t, w)
	if err := s.HandleMessage([]byte(`{"type":"create_ship","nickname":"alice","shipName":"Nebula"}`)); err != nil {
		t.Fatal(err)
	}

	msgs := []string{
		`{"type":"input","keys":{"right":true}}`,
		`{"type":"send_chat","text":"  hello crew  "}`,
		`{"type":"send_chat","text":""}`,
		`{"type":"place_item","slot":0}`,
		`{"type":"bogus"}`,
		`not json`,
	}
	for _, m := range msgs {
		if err := s.HandleMessage([]byte(m)); err != nil {
			t.Fatalf("HandleMessage(%s): %v", m, err)
		}
	}

	st := w.Snapshot()
	p := st.Players[s.PlayerID()]
	if p.VX != PlayerSpeed {
		t.Errorf("input not applied, vx=%v", p.VX)
	}
	chat := st.Ships[p.ShipID].ChatMessages
	if last := chat[len(chat)-1]; last.Nick != "alice" || last.Text != "hello crew" {
		t.Errorf("last chat %+v", last)
	}

	snap := w.Metrics().Snapshot()
	if snap["actions_applied"].(int64) != 2 || snap["actions_ignored"].(int64) != 4 {
		t.Errorf("metrics %v", snap)
	}
	types := tr.types()
	if types[len(types)-1] != EvtChatSent {
		t.Errorf("expected chat tracked, got %v", types)
	}
	if got := tr.last().Data; got != `{"len":10}` {
		t.Errorf("chat payload %s, want the trimmed length", got)
	}
}

func TestSessionChatLengthCountsRunes(t *testing.T) {
	w := newTestWorld(t, 28)
	s, _, tr := newTestSession(t, w)
	s.HandleMessage([]byte(`{"type":"create_ship","nickname":"alice"}`))
	s.HandleMessage([]byte(`{"type":"send_chat","text":"  привет  "}`))
	if got := tr.last(); got.Type != EvtChatSent || got.Data != `{"len":6}` {
		t.Errorf("tracked %+v", got)
	}
}

func TestSessionCloseRunsOnce(t *testing.T) {
	w := newTestWorld(t, 25)
	s, _, tr := newTestSession(t, w)
	s.HandleMessage([]byte(`{"type":"create_ship","nickname":"alice"}`))
	s.HandleMessage([]byte(`{"type":"interact"}`))
	shipID := w.Lobby()[0].ID

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Close()
		}()
	}
	wg.Wait()

	st := w.Snapshot()
	if len(st.Players) != 0 {
		t.Error("player should be removed")
	}
	if st.Ships[shipID].Pilot != nil {
		t.Error("helm should be released")
	}
	left := 0
	for _, typ := range tr.types() {
		if typ == EvtPlayerLeft {
			left++
		}
	}
	if left != 1 {
		t.Errorf("expected one player_left event, got %d", left)
	}
	chat := st.Ships[shipID].ChatMessages
	if chat[len(chat)-1].Text != "Player 'alice' disconnected." {
		t.Errorf("unexpected departure line %+v", chat[len(chat)-1])
	}
}

func TestSessionCloseInLobby(t *testing.T) {
	w := newTestWorld(t, 26)
	s, _, tr := newTestSession(t, w)
	s.Close()
	if len(tr.types()) != 0 {
		t.Error("closing a lobby session tracks nothing")
	}
}

func TestSessionNilTracker(t *testing.T) {
	w := newTestWorld(t, 27)
	s := NewSession(w, &mockBroadcaster{}, nil, zap.NewNop().Sugar())
	if err := s.HandleMessage([]byte(`{"type":"create_ship","nickname":"a"}`)); err != nil {
		t.Fatal(err)
	}
	s.Close()
}
