package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Sender delivers outbound messages to one client. SendInit also ends
// the client's lobby phase.
type Sender interface {
	SendJSON(msg interface{})
	SendInit(msg InitPlayer)
}

// EventTracker records gameplay events; *Analytics implements it
type EventTracker interface {
	Track(evtType, shipID, playerID, data string)
}

// Session is the protocol state of one connection: the first message
// admits it onto a ship, later messages are actions, Close tears it down.
type Session struct {
	world   *World
	out     Sender
	tracker EventTracker
	log     *zap.SugaredLogger

	// Touched only by the connection's read goroutine.
	attempted bool
	nickname  string
	shipID    string

	playerID  atomic.Value // string; read by the broadcaster
	closeOnce sync.Once
}

// NewSession creates a session in the lobby state. tracker may be nil.
func NewSession(world *World, out Sender, tracker EventTracker, logger *zap.SugaredLogger) *Session {
	s := &Session{
		world:   world,
		out:     out,
		tracker: tracker,
		log:     logger,
	}
	s.playerID.Store("")
	return s
}

// PlayerID returns the admitted player, "" while in the lobby
func (s *Session) PlayerID() string {
	return s.playerID.Load().(string)
}

// HandleMessage processes one inbound message. A non-nil error means the
// connection must be closed.
func (s *Session) HandleMessage(raw []byte) error {
	msg, decodeErr := DecodeInbound(raw)

	if !s.attempted {
		s.attempted = true
		if decodeErr != nil {
			s.log.Debugw("invalid admission message, staying in lobby", "err", decodeErr)
			return nil
		}
		return s.admit(msg)
	}

	id := s.PlayerID()
	if decodeErr != nil || id == "" {
		s.world.metrics.IncActionIgnored()
		return nil
	}
	if err := s.world.Apply(id, msg); err != nil {
		s.world.metrics.IncActionIgnored()
		return nil
	}
	s.world.metrics.IncActionApplied()
	if m, ok := msg.(SendChatMsg); ok {
		s.track(EvtChatSent, s.shipID, id, fmt.Sprintf(`{"len":%d}`, utf8.RuneCountInString(strings.TrimSpace(m.Text))))
	}
	return nil
}

func (s *Session) admit(msg Inbound) error {
	var (
		adm Admission
		err error
	)
	switch m := msg.(type) {
	case CreateShipMsg:
		s.nickname = cleanName(m.Nickname, MaxNicknameLen, DefaultNickname)
		adm = s.world.CreateShip(s.nickname, cleanName(m.ShipName, MaxShipNameLen, DefaultShipName))
		s.track(EvtShipCreated, adm.ShipID, adm.PlayerID, "")
	case JoinShipMsg:
		s.nickname = cleanName(m.Nickname, MaxNicknameLen, DefaultNickname)
		adm, err = s.world.JoinShip(s.nickname, m.ShipID)
	default:
		s.log.Debugw("first message is not an admission, staying in lobby")
		return nil
	}

	if err != nil {
		s.log.Infow("admission failed", "nickname", s.nickname, "err", err)
		s.track(EvtAdmissionFailed, "", "", "")
		s.out.SendJSON(ErrorMsg{Error: err.Error()})
		return fmt.Errorf("admission: %w", err)
	}

	// Queue init_player before state frames can target this session.
	s.out.SendInit(InitPlayer{
		Type:         MsgInitPlayer,
		PlayerID:     adm.PlayerID,
		InitialState: adm.State,
	})
	s.shipID = adm.ShipID
	s.playerID.Store(adm.PlayerID)
	s.track(EvtPlayerJoined, adm.ShipID, adm.PlayerID, "")
	return nil
}

// Close removes the admitted player from the world. Safe to call more
// than once; only the first call has an effect.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		id := s.PlayerID()
		if id == "" {
			return
		}
		if shipID := s.world.RemovePlayer(id); shipID != "" {
			s.track(EvtPlayerLeft, shipID, id, "")
		}
	})
}

func (s *Session) track(evtType, shipID, playerID, data string) {
	if s.tracker == nil {
		return
	}
	s.tracker.Track(evtType, shipID, playerID, data)
}

// IsAdmissionError reports whether err came from a failed create/join
func IsAdmissionError(err error) bool {
	return errors.Is(err, ErrShipNotFound)
}
