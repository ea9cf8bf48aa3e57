package main

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event types for analytics tracking
const (
	EvtShipCreated     = "ship_created"
	EvtPlayerJoined    = "player_joined"
	EvtPlayerLeft      = "player_left"
	EvtChatSent        = "chat_sent"
	EvtAdmissionFailed = "admission_failed"
)

const (
	analyticsBuffer     = 1024
	analyticsBatchSize  = 50
	analyticsFlushEvery = 5 * time.Second
)

// AnalyticsEvent represents a single trackable event
type AnalyticsEvent struct {
	Type      string    `json:"type"`
	ShipID    string    `json:"ship_id,omitempty"`
	PlayerID  string    `json:"player_id,omitempty"`
	Data      string    `json:"data,omitempty"` // JSON metadata (optional)
	Timestamp time.Time `json:"created_at"`
}

// Analytics handles event tracking with batched background writes.
// A nil *Analytics or one without a database accepts and discards events.
type Analytics struct {
	db     *DB
	log    *zap.SugaredLogger
	events chan AnalyticsEvent
	stop   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewAnalytics creates and starts the analytics background writer
func NewAnalytics(db *DB, logger *zap.SugaredLogger) *Analytics {
	a := &Analytics{
		db:     db,
		log:    logger,
		events: make(chan AnalyticsEvent, analyticsBuffer),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event for async persistence (non-blocking)
func (a *Analytics) Track(evtType, shipID, playerID, data string) {
	if a == nil || a.db == nil {
		return
	}
	select {
	case a.events <- AnalyticsEvent{
		Type:      evtType,
		ShipID:    shipID,
		PlayerID:  playerID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}:
	default:
		// full: drop rather than stall a session
	}
}

// Stop flushes pending events and shuts down the writer. Events tracked
// after Stop stay in the buffer and are never written.
func (a *Analytics) Stop() {
	if a == nil {
		return
	}
	a.once.Do(func() { close(a.stop) })
	a.wg.Wait()
}

// writer is the background goroutine that batches and writes events to DB
func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]AnalyticsEvent, 0, 64)
	ticker := time.NewTicker(analyticsFlushEvery)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= analyticsBatchSize {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-a.stop:
		drain:
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
				default:
					break drain
				}
			}
			a.flush(batch)
			return
		}
	}
}

// flush writes a batch of events in one transaction
func (a *Analytics) flush(events []AnalyticsEvent) {
	if a.db == nil || len(events) == 0 {
		return
	}
	if err := a.insert(events); err != nil {
		a.log.Errorw("analytics flush failed", "events", len(events), "err", err)
	}
}

func (a *Analytics) insert(events []AnalyticsEvent) error {
	tx, err := a.db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO analytics_events (event_type, ship_id, player_id, data, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, evt := range events {
		_, err := stmt.Exec(evt.Type, nullString(evt.ShipID), nullString(evt.PlayerID), nullString(evt.Data),
			evt.Timestamp.Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("insert %s: %w", evt.Type, err)
		}
	}
	return tx.Commit()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// EventCounts returns counts of each event type for the last N days
func (a *Analytics) EventCounts(days int) (map[string]int, error) {
	if a == nil || a.db == nil {
		return nil, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT event_type, COUNT(*) FROM analytics_events
		WHERE created_at >= date('now', '-' || ? || ' days')
		GROUP BY event_type ORDER BY COUNT(*) DESC
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var evtType string
		var count int
		if err := rows.Scan(&evtType, &count); err != nil {
			return nil, err
		}
		result[evtType] = count
	}
	return result, rows.Err()
}

// RecentEvents returns the newest events first
func (a *Analytics) RecentEvents(limit int) ([]AnalyticsEvent, error) {
	if a == nil || a.db == nil {
		return nil, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT event_type, COALESCE(ship_id, ''), COALESCE(player_id, ''), COALESCE(data, ''), created_at
		FROM analytics_events
		ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AnalyticsEvent
	for rows.Next() {
		var evt AnalyticsEvent
		var created string
		if err := rows.Scan(&evt.Type, &evt.ShipID, &evt.PlayerID, &evt.Data, &created); err != nil {
			return nil, err
		}
		evt.Timestamp, _ = time.Parse(time.RFC3339, created)
		result = append(result, evt)
	}
	return result, rows.Err()
}
