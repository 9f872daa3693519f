package lobby

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golf-lite/apps/server/internal/ledger"
	"golf-lite/apps/server/internal/relay"
	"golf-lite/apps/server/internal/room"
	"golf-lite/golf"
	"golf-lite/golf/bot"

	"github.com/gin-gonic/gin"
)

// Lobby is the room registry. Room creation is cheap, so quick start simply
// finds a joinable room or makes one.
type Lobby struct {
	mu    sync.Mutex
	rooms map[string]*room.Room

	bots      *bot.Manager
	ledger    ledger.Service
	relay     relay.Publisher
	broadcast func(userID uint64, data []byte)
}

func New(bots *bot.Manager, ledgerService ledger.Service, relayPublisher relay.Publisher) *Lobby {
	return &Lobby{
		rooms:  make(map[string]*room.Room),
		bots:   bots,
		ledger: ledgerService,
		relay:  relayPublisher,
	}
}

// SetBroadcast wires the gateway's per-user delivery. Must be called before
// any room is created.
func (l *Lobby) SetBroadcast(fn func(userID uint64, data []byte)) {
	l.mu.Lock()
	l.broadcast = fn
	l.mu.Unlock()
}

func (l *Lobby) Get(roomID string) *room.Room {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rooms[roomID]
}

// QuickStart returns a room with a free seat, creating a default one when
// every existing room is full or finished.
func (l *Lobby) QuickStart() (*room.Room, error) {
	l.mu.Lock()
	for _, r := range l.rooms {
		occupied, capacity, ended := r.Seated()
		if !ended && occupied < capacity {
			l.mu.Unlock()
			return r, nil
		}
	}
	l.mu.Unlock()
	return l.Create(room.Config{})
}

func (l *Lobby) Create(cfg room.Config) (*room.Room, error) {
	l.mu.Lock()
	broadcast := l.broadcast
	l.mu.Unlock()
	if broadcast == nil {
		return nil, fmt.Errorf("lobby not wired to a gateway yet")
	}

	r, err := room.New(cfg, room.Deps{
		Bots:      l.bots,
		Ledger:    l.ledger,
		Relay:     l.relay,
		Broadcast: broadcast,
	})
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.rooms[r.ID] = r
	l.mu.Unlock()
	log.Printf("[Lobby] created room %s (max=%d rounds=%d)", r.ID, r.Config.MaxPlayers, r.Config.TotalRounds)
	return r, nil
}

type RoomSummary struct {
	RoomID   string `json:"room_id"`
	Occupied int    `json:"occupied"`
	Capacity int    `json:"capacity"`
	Ended    bool   `json:"ended"`
	Rounds   int    `json:"total_rounds"`
}

func (l *Lobby) List() []RoomSummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]RoomSummary, 0, len(l.rooms))
	for _, r := range l.rooms {
		occupied, capacity, ended := r.Seated()
		out = append(out, RoomSummary{
			RoomID:   r.ID,
			Occupied: occupied,
			Capacity: capacity,
			Ended:    ended,
			Rounds:   r.Config.TotalRounds,
		})
	}
	return out
}

type createRoomRequest struct {
	MaxPlayers     uint16         `json:"max_players"`
	TotalRounds    int            `json:"total_rounds"`
	InitialFlips   int            `json:"initial_flips"`
	Decks          int            `json:"decks"`
	TurnTimeoutSec int            `json:"turn_timeout_sec"`
	Rules          houseRulesBody `json:"rules"`
}

type houseRulesBody struct {
	SuperKings    bool   `json:"super_kings"`
	TenPenny      bool   `json:"ten_penny"`
	UseJokers     bool   `json:"use_jokers"`
	LuckySwing    bool   `json:"lucky_swing"`
	EagleEye      bool   `json:"eagle_eye"`
	KnockBonus    bool   `json:"knock_bonus"`
	KnockPenalty  bool   `json:"knock_penalty"`
	UnderdogBonus bool   `json:"underdog_bonus"`
	TiedShame     bool   `json:"tied_shame"`
	Blackjack     bool   `json:"blackjack"`
	EarlyKnock    bool   `json:"early_knock"`
	FlipMode      string `json:"flip_mode"`
}

func (b houseRulesBody) toRules() (golf.HouseRules, error) {
	rules := golf.HouseRules{
		SuperKings:    b.SuperKings,
		TenPenny:      b.TenPenny,
		UseJokers:     b.UseJokers,
		LuckySwing:    b.LuckySwing,
		EagleEye:      b.EagleEye,
		KnockBonus:    b.KnockBonus,
		KnockPenalty:  b.KnockPenalty,
		UnderdogBonus: b.UnderdogBonus,
		TiedShame:     b.TiedShame,
		Blackjack:     b.Blackjack,
		EarlyKnock:    b.EarlyKnock,
	}
	switch strings.ToLower(strings.TrimSpace(b.FlipMode)) {
	case "", "never":
		rules.FlipMode = golf.FlipNever
	case "always":
		rules.FlipMode = golf.FlipAlways
	case "endgame":
		rules.FlipMode = golf.FlipEndgame
	default:
		return rules, fmt.Errorf("unknown flip_mode %q", b.FlipMode)
	}
	return rules, nil
}

func (l *Lobby) RegisterRoutes(r gin.IRouter) {
	r.GET("/api/rooms", l.handleListRooms)
	r.POST("/api/rooms", l.handleCreateRoom)
	r.GET("/api/personas", l.handleListPersonas)
}

func (l *Lobby) handleListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": l.List()})
}

func (l *Lobby) handleCreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	rules, err := req.Rules.toRules()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := room.Config{
		MaxPlayers:   req.MaxPlayers,
		TotalRounds:  req.TotalRounds,
		InitialFlips: req.InitialFlips,
		Decks:        req.Decks,
		Rules:        rules,
		TurnTimeout:  time.Duration(req.TurnTimeoutSec) * time.Second,
	}
	created, err := l.Create(cfg)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_id": created.ID})
}

func (l *Lobby) handleListPersonas(c *gin.Context) {
	type personaItem struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	items := make([]personaItem, 0)
	for _, p := range l.bots.Registry().All() {
		items = append(items, personaItem{ID: p.ID, Name: p.Name})
	}
	c.JSON(http.StatusOK, gin.H{"personas": items})
}
