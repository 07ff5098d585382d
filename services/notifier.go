package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// Room event kinds published to the realtime transport
const (
	EventTapRecorded       = "tap_recorded"
	EventContestStarted    = "contest_started"
	EventContestWon        = "contest_won"
	EventTiebreakerStarted = "tiebreaker_started"
	EventContestFinished   = "contest_finished"
)

// Notifier publishes room events over NATS for realtime clients on
// subject arena.room.<roomID>.<kind>. Delivery is fire-and-forget: a
// nil Notifier is a no-op and a failed publish only logs — it never
// affects the transaction that produced the event.
type Notifier struct {
	nc *nats.Conn
}

func NewNotifier(natsURL string) (*Notifier, error) {
	nc, err := nats.Connect(natsURL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("⚠️ NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("🔁 NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &Notifier{nc: nc}, nil
}

// Publish sends one room event. Safe to call on a nil notifier.
func (n *Notifier) Publish(roomID, kind string, payload map[string]interface{}) {
	if n == nil || n.nc == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("⚠️ Notifier: marshal %s event failed: %v", kind, err)
		return
	}
	subject := fmt.Sprintf("arena.room.%s.%s", roomID, kind)
	if err := n.nc.Publish(subject, data); err != nil {
		log.Printf("⚠️ Notifier: publish %s failed: %v", subject, err)
	}
}

// Close drains the connection on shutdown.
func (n *Notifier) Close() {
	if n == nil || n.nc == nil {
		return
	}
	if err := n.nc.Drain(); err != nil {
		log.Printf("⚠️ Notifier: drain failed: %v", err)
	}
}
