package relay

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher mirrors room traffic onto a message bus so stats pipelines and
// spectator services can follow games without touching the websocket path.
// Publishing is fire-and-forget: the bus being down never blocks a room.
type Publisher interface {
	PublishRoomEvent(roomID string, encoded []byte)
	PublishRoundSettled(roomID string, settlement any)
	Close()
}

const (
	roomEventSubjectPrefix = "golf.rooms."
	roundSettledSubject    = "golf.rounds.settled"
	heartbeatSubject       = "golf.server.heartbeat"
	heartbeatInterval      = 30 * time.Second
)

// RoomEventSubject returns the per-room event subject. Dots in room IDs
// would split the subject, so they are replaced.
func RoomEventSubject(roomID string) string {
	safe := strings.ReplaceAll(roomID, ".", "_")
	return roomEventSubjectPrefix + safe + ".events"
}

type natsPublisher struct {
	nc   *nats.Conn
	done chan struct{}
}

// heartbeatLoop lets downstream consumers tell "no games" apart from "server
// gone".
func (p *natsPublisher) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			raw, _ := json.Marshal(map[string]any{"ts_ms": time.Now().UnixMilli()})
			if err := p.nc.Publish(heartbeatSubject, raw); err != nil {
				log.Printf("[Relay] heartbeat publish failed: %v", err)
			}
		}
	}
}

// NewPublisherFromEnv connects to NATS_URL. An empty NATS_URL disables the
// relay (noop), which is the default for local runs.
func NewPublisherFromEnv() (Publisher, string, error) {
	url := strings.TrimSpace(os.Getenv("NATS_URL"))
	if url == "" {
		return &noopPublisher{}, "noop", nil
	}
	nc, err := nats.Connect(url,
		nats.Name("golf-server"),
		nats.MaxReconnects(-1),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[Relay] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[Relay] disconnected: %v", err)
			}
		}),
	)
	if err != nil {
		return nil, "", fmt.Errorf("connect nats %s: %w", url, err)
	}
	p := &natsPublisher{nc: nc, done: make(chan struct{})}
	go p.heartbeatLoop()
	return p, url, nil
}

func (p *natsPublisher) PublishRoomEvent(roomID string, encoded []byte) {
	if err := p.nc.Publish(RoomEventSubject(roomID), encoded); err != nil {
		log.Printf("[Relay] publish room event failed: room=%s err=%v", roomID, err)
	}
}

func (p *natsPublisher) PublishRoundSettled(roomID string, settlement any) {
	raw, err := json.Marshal(map[string]any{
		"room_id":    roomID,
		"settlement": settlement,
	})
	if err != nil {
		log.Printf("[Relay] marshal settlement failed: room=%s err=%v", roomID, err)
		return
	}
	if err := p.nc.Publish(roundSettledSubject, raw); err != nil {
		log.Printf("[Relay] publish settlement failed: room=%s err=%v", roomID, err)
	}
}

func (p *natsPublisher) Close() {
	close(p.done)
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}

type noopPublisher struct{}

func (n *noopPublisher) PublishRoomEvent(string, []byte) {}

func (n *noopPublisher) PublishRoundSettled(string, any) {}

func (n *noopPublisher) Close() {}

// NewNoop returns a disabled relay for tests and local rooms.
func NewNoop() Publisher { return &noopPublisher{} }
