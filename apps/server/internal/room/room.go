package room

import (
	"fmt"
	"log"
	"sync"
	"time"

	"golf-lite/apps/server/internal/codec"
	"golf-lite/apps/server/internal/ledger"
	"golf-lite/apps/server/internal/relay"
	"golf-lite/golf"
	"golf-lite/golf/bot"

	"github.com/google/uuid"
)

const (
	tickInterval   = 500 * time.Millisecond
	offlineSeatTTL = 30 * time.Second
)

// Config is the room-level game setup. Zero values fall back to defaults.
type Config struct {
	MaxPlayers   uint16
	TotalRounds  int
	InitialFlips int
	Decks        int
	Rules        golf.HouseRules
	TurnTimeout  time.Duration
	RoundDelay   time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxPlayers == 0 {
		c.MaxPlayers = 4
	}
	if c.TotalRounds == 0 {
		c.TotalRounds = 9
	}
	if c.TurnTimeout == 0 {
		c.TurnTimeout = 30 * time.Second
	}
	if c.RoundDelay == 0 {
		c.RoundDelay = 5 * time.Second
	}
	return c
}

// PlayerConn tracks room-level player state the engine does not know about.
type PlayerConn struct {
	UserID    uint64
	Name      string
	Seat      uint16 // InvalidSeat while spectating
	Online    bool
	IsBot     bool
	OfflineAt time.Time
}

type EventType int

const (
	EventJoin EventType = iota
	EventLeave
	EventSitDown
	EventStandUp
	EventAddBot
	EventStartRound
	EventAction
	EventBotAct
	EventConnLost
	EventConnResume
)

// Event is the single message type the room goroutine consumes. Response is
// optional: gateway calls that need the verdict attach a channel; internal
// submissions (bot acts, timers) leave it nil.
type Event struct {
	Type     EventType
	UserID   uint64
	Name     string
	Seat     uint16
	Persona  string
	Action   golf.Action
	ReqSeq   uint64
	Response chan error
}

// Deps are the room's external services. Broadcast delivers an encoded frame
// to every live connection of one user.
type Deps struct {
	Bots      *bot.Manager
	Ledger    ledger.Service
	Relay     relay.Publisher
	Broadcast func(userID uint64, data []byte)
}

// Room serializes all game access through one goroutine: every mutation
// arrives as an Event on the events channel, so handlers never need the
// engine's lock for consistency across multiple calls.
type Room struct {
	ID     string
	Config Config

	game *golf.Game
	deps Deps

	players         map[uint64]*PlayerConn
	seats           map[uint16]uint64
	pendingStandUps map[uint64]bool
	botPending      map[uint64]bool

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once

	serverSeq      uint64
	roundID        string
	tape           []ledger.EventItem
	actionDeadline time.Time
	nextRoundAt    time.Time
}

func New(cfg Config, deps Deps) (*Room, error) {
	cfg = cfg.withDefaults()
	game, err := golf.NewGame(golf.Config{
		MaxPlayers:   int(cfg.MaxPlayers),
		MinPlayers:   2,
		Decks:        cfg.Decks,
		TotalRounds:  cfg.TotalRounds,
		InitialFlips: cfg.InitialFlips,
		Rules:        cfg.Rules,
	})
	if err != nil {
		return nil, fmt.Errorf("create room game: %w", err)
	}
	if deps.Broadcast == nil {
		deps.Broadcast = func(uint64, []byte) {}
	}
	if deps.Ledger == nil {
		deps.Ledger = ledger.NewNoop()
	}
	if deps.Relay == nil {
		deps.Relay = relay.NewNoop()
	}

	r := &Room{
		ID:              uuid.NewString(),
		Config:          cfg,
		game:            game,
		deps:            deps,
		players:         make(map[uint64]*PlayerConn),
		seats:           make(map[uint16]uint64),
		pendingStandUps: make(map[uint64]bool),
		botPending:      make(map[uint64]bool),
		events:          make(chan Event, 64),
		done:            make(chan struct{}),
	}
	go r.run()
	return r, nil
}

// Submit queues an event without waiting for the outcome.
func (r *Room) Submit(ev Event) {
	select {
	case r.events <- ev:
	case <-r.done:
	}
}

// Call queues an event and waits for the handler's verdict.
func (r *Room) Call(ev Event) error {
	ev.Response = make(chan error, 1)
	select {
	case r.events <- ev:
	case <-r.done:
		return fmt.Errorf("room %s closed", r.ID)
	}
	select {
	case err := <-ev.Response:
		return err
	case <-r.done:
		return fmt.Errorf("room %s closed", r.ID)
	}
}

func (r *Room) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}

// Seated reports seat occupancy for the lobby's quick-start matching. The
// engine snapshot carries its own lock, so this is safe off the room
// goroutine.
func (r *Room) Seated() (occupied int, capacity int, ended bool) {
	snap := r.game.Snapshot()
	return len(snap.Players), int(r.Config.MaxPlayers), snap.Ended
}

func (r *Room) run() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case ev := <-r.events:
			err := r.handleEvent(ev)
			if ev.Response != nil {
				ev.Response <- err
			} else if err != nil && ev.Type != EventBotAct {
				r.sendError(ev.UserID, "action_rejected", err.Error(), ev.ReqSeq)
			}
		case now := <-ticker.C:
			r.tick(now)
		}
	}
}

func (r *Room) handleEvent(ev Event) error {
	switch ev.Type {
	case EventJoin:
		return r.handleJoin(ev.UserID, ev.Name)
	case EventLeave:
		return r.handleLeave(ev.UserID)
	case EventSitDown:
		return r.handleSitDown(ev.UserID, ev.Seat)
	case EventStandUp:
		return r.handleStandUp(ev.UserID)
	case EventAddBot:
		return r.handleAddBot(ev.Seat, ev.Persona)
	case EventStartRound:
		return r.handleStartRound(ev.UserID)
	case EventAction:
		return r.handleAction(ev.UserID, ev.Action)
	case EventBotAct:
		r.handleBotAct(ev.UserID)
		return nil
	case EventConnLost:
		r.handleConnLost(ev.UserID)
		return nil
	case EventConnResume:
		r.handleConnResume(ev.UserID)
		return nil
	}
	return fmt.Errorf("unknown room event %d", ev.Type)
}

func (r *Room) handleJoin(userID uint64, name string) error {
	if userID == 0 {
		return nil
	}
	pc := r.players[userID]
	if pc == nil {
		pc = &PlayerConn{UserID: userID, Seat: golf.InvalidSeat}
		r.players[userID] = pc
	}
	pc.Online = true
	if name != "" {
		pc.Name = name
	}
	r.sendSnapshot(userID)
	return nil
}

func (r *Room) handleLeave(userID uint64) error {
	pc := r.players[userID]
	if pc == nil {
		return nil
	}
	if pc.Seat != golf.InvalidSeat {
		if err := r.handleStandUp(userID); err != nil {
			return err
		}
		// Deferred stand-ups keep the player entry until the round settles.
		if r.pendingStandUps[userID] {
			pc.Online = false
			return nil
		}
	}
	delete(r.players, userID)
	return nil
}

func (r *Room) handleSitDown(userID uint64, seat uint16) error {
	pc := r.players[userID]
	if pc == nil {
		return fmt.Errorf("join the room before sitting down")
	}
	if pc.Seat != golf.InvalidSeat {
		return fmt.Errorf("already seated at %d", pc.Seat)
	}
	if _, taken := r.seats[seat]; taken {
		return fmt.Errorf("seat %d is taken", seat)
	}
	if err := r.game.SitDown(seat, userID, false); err != nil {
		return err
	}
	pc.Seat = seat
	r.seats[seat] = userID
	log.Printf("[Room %s] user %d sat at seat %d", r.ID, userID, seat)

	r.broadcastSeatUpdate(seat, pc, false)
	r.maybeScheduleNextRound()
	return nil
}

func (r *Room) handleStandUp(userID uint64) error {
	pc := r.players[userID]
	if pc == nil || pc.Seat == golf.InvalidSeat {
		return fmt.Errorf("not seated")
	}
	if r.roundActive() {
		// The engine rejects seat changes mid-round; park the request until
		// settlement.
		r.pendingStandUps[userID] = true
		log.Printf("[Room %s] user %d stand-up deferred until round end", r.ID, userID)
		return nil
	}
	r.releaseSeat(userID)
	return nil
}

func (r *Room) handleAddBot(seat uint16, personaID string) error {
	if _, taken := r.seats[seat]; taken {
		return fmt.Errorf("seat %d is taken", seat)
	}
	if r.roundActive() {
		return golf.ErrRoundInProgress
	}
	registry := r.deps.Bots.Registry()
	persona := registry.Get(personaID)
	if persona == nil {
		all := registry.All()
		if len(all) == 0 {
			return fmt.Errorf("no bot personas available")
		}
		persona = all[int(time.Now().UnixNano())%len(all)]
	}
	inst, err := r.deps.Bots.Spawn(r.game, seat, persona)
	if err != nil {
		return err
	}
	pc := &PlayerConn{
		UserID: inst.PlayerID,
		Name:   persona.Name,
		Seat:   seat,
		Online: true,
		IsBot:  true,
	}
	r.players[inst.PlayerID] = pc
	r.seats[seat] = inst.PlayerID

	r.broadcastSeatUpdate(seat, pc, false)
	r.maybeScheduleNextRound()
	return nil
}

func (r *Room) handleStartRound(userID uint64) error {
	pc := r.players[userID]
	if pc == nil || pc.Seat == golf.InvalidSeat {
		return fmt.Errorf("only seated players may start the round")
	}
	return r.startRound()
}

func (r *Room) handleAction(userID uint64, act golf.Action) error {
	pc := r.players[userID]
	if pc == nil || pc.Seat == golf.InvalidSeat {
		return fmt.Errorf("not seated")
	}
	events, err := r.game.Act(pc.Seat, act)
	if err != nil {
		if golf.IsFatal(err) {
			log.Printf("[Room %s] FATAL engine state: %v", r.ID, err)
		}
		return err
	}
	r.afterActions(events)
	return nil
}

func (r *Room) handleBotAct(userID uint64) {
	delete(r.botPending, userID)
	pc := r.players[userID]
	if pc == nil || !pc.IsBot || pc.Seat == golf.InvalidSeat {
		return
	}
	if !r.roundActive() {
		return
	}
	act, ok := r.deps.Bots.OnTurn(userID, r.game.Snapshot())
	if !ok {
		return
	}
	events, err := r.game.Act(pc.Seat, act)
	if err != nil {
		// A human may have acted between scheduling and firing; just let
		// the next turn broadcast reschedule the bot.
		log.Printf("[Room %s] bot %d action dropped: %v", r.ID, userID, err)
		return
	}
	r.afterActions(events)
}

func (r *Room) handleConnLost(userID uint64) {
	pc := r.players[userID]
	if pc == nil || pc.IsBot {
		return
	}
	pc.Online = false
	pc.OfflineAt = time.Now()
	log.Printf("[Room %s] user %d offline", r.ID, userID)
}

func (r *Room) handleConnResume(userID uint64) {
	pc := r.players[userID]
	if pc == nil {
		return
	}
	pc.Online = true
	pc.OfflineAt = time.Time{}
	r.sendSnapshot(userID)
	log.Printf("[Room %s] user %d resumed", r.ID, userID)
}

func (r *Room) tick(now time.Time) {
	// Seats held by long-offline players go back to the pool.
	for userID, pc := range r.players {
		if pc.IsBot || pc.Online || pc.Seat == golf.InvalidSeat {
			continue
		}
		if now.Sub(pc.OfflineAt) < offlineSeatTTL {
			continue
		}
		if r.roundActive() {
			r.pendingStandUps[userID] = true
		} else {
			r.releaseSeat(userID)
		}
	}

	if !r.actionDeadline.IsZero() && now.After(r.actionDeadline) && r.roundActive() {
		r.forceTimeoutAction()
	}

	if !r.nextRoundAt.IsZero() && now.After(r.nextRoundAt) {
		r.nextRoundAt = time.Time{}
		if err := r.startRound(); err != nil {
			log.Printf("[Room %s] scheduled round start failed: %v", r.ID, err)
		}
	}
}

func (r *Room) roundActive() bool {
	snap := r.game.Snapshot()
	return !snap.Ended &&
		snap.Phase != golf.PhaseTypeRoundOver &&
		snap.Phase != golf.PhaseTypeGameOver
}

func (r *Room) startRound() error {
	if err := r.game.StartRound(); err != nil {
		return err
	}
	r.roundID = uuid.NewString()
	r.tape = r.tape[:0]
	r.actionDeadline = time.Now().Add(r.Config.TurnTimeout)
	r.nextRoundAt = time.Time{}
	log.Printf("[Room %s] round %d started (id=%s)", r.ID, r.game.Snapshot().Round, r.roundID)

	r.broadcastSnapshots("round_start")
	r.scheduleBots()
	return nil
}

// forceTimeoutAction plays a neutral move for the stalled seat. The deadline
// resets after every applied action, so a fully stalled player progresses one
// forced step per timeout.
func (r *Room) forceTimeoutAction() {
	snap := r.game.Snapshot()

	if snap.Phase == golf.PhaseTypeInitialFlip {
		// The reveal phase is not turn-bound; flip for everyone behind quota.
		var all []golf.Event
		for _, p := range snap.Players {
			for p.InitialFlips < snap.InitialFlipQuota {
				pos := firstFaceDown(p)
				if pos < 0 {
					break
				}
				events, err := r.game.Act(p.Seat, golf.Action{Type: golf.PlayerActionTypeFlip, Pos: pos})
				if err != nil {
					log.Printf("[Room %s] timeout flip failed: seat=%d err=%v", r.ID, p.Seat, err)
					break
				}
				all = append(all, events...)
				p.InitialFlips++
				p.Slots[pos].FaceUp = true
			}
		}
		if len(all) > 0 {
			log.Printf("[Room %s] reveal phase timed out, auto-flipped", r.ID)
			r.afterActions(all)
		} else {
			r.actionDeadline = time.Now().Add(r.Config.TurnTimeout)
		}
		return
	}

	act, ok := autoAction(snap)
	if !ok {
		r.actionDeadline = time.Now().Add(r.Config.TurnTimeout)
		return
	}
	events, err := r.game.ForceCurrent(act)
	if err != nil {
		log.Printf("[Room %s] timeout action failed: seat=%d err=%v", r.ID, snap.ActionSeat, err)
		r.actionDeadline = time.Now().Add(r.Config.TurnTimeout)
		return
	}
	log.Printf("[Room %s] seat %d timed out, forced %s", r.ID, snap.ActionSeat, act.Type)
	r.afterActions(events)
}

// autoAction picks the least committal legal move for the current phase.
func autoAction(snap golf.Snapshot) (golf.Action, bool) {
	switch snap.Phase {
	case golf.PhaseTypeAwaitingDraw:
		return golf.Action{Type: golf.PlayerActionTypeDraw, Source: golf.DrawSourceDeck}, true
	case golf.PhaseTypeHoldingCard:
		if snap.HeldSource == golf.DrawSourceDiscard {
			// Discard draws must be swapped in; bury it in the first
			// face-down slot.
			pos := 0
			if actor := playerAtSeat(snap, snap.ActionSeat); actor != nil {
				if fd := firstFaceDown(*actor); fd >= 0 {
					pos = fd
				}
			}
			return golf.Action{Type: golf.PlayerActionTypeSwap, Pos: pos}, true
		}
		return golf.Action{Type: golf.PlayerActionTypeDiscard}, true
	case golf.PhaseTypeWaitingForFlip:
		if snap.FlipOptional {
			return golf.Action{Type: golf.PlayerActionTypeSkipFlip}, true
		}
		if actor := playerAtSeat(snap, snap.ActionSeat); actor != nil {
			if fd := firstFaceDown(*actor); fd >= 0 {
				return golf.Action{Type: golf.PlayerActionTypeFlip, Pos: fd}, true
			}
		}
		return golf.Action{Type: golf.PlayerActionTypeSkipFlip}, true
	}
	return golf.Action{}, false
}

func playerAtSeat(snap golf.Snapshot, seat uint16) *golf.PlayerSnapshot {
	for i := range snap.Players {
		if snap.Players[i].Seat == seat {
			return &snap.Players[i]
		}
	}
	return nil
}

func firstFaceDown(p golf.PlayerSnapshot) int {
	for i, slot := range p.Slots {
		if !slot.FaceUp {
			return i
		}
	}
	return -1
}

// afterActions fans engine events out to viewers, feeds the ledger tape, and
// drives round/game transitions.
func (r *Room) afterActions(events []golf.Event) {
	var result *golf.RoundResult
	gameOver := false
	for _, ev := range events {
		r.broadcastEvent(ev)
		switch ev.Type {
		case golf.EventTypeRoundOver:
			result = ev.Result
		case golf.EventTypeGameOver:
			result = ev.Result
			gameOver = true
		}
	}

	if result != nil {
		r.handleRoundEnd(result, gameOver)
		return
	}
	if r.roundActive() {
		r.actionDeadline = time.Now().Add(r.Config.TurnTimeout)
		r.scheduleBots()
	}
}

func (r *Room) handleRoundEnd(result *golf.RoundResult, gameOver bool) {
	r.actionDeadline = time.Time{}
	playedAt := time.Now().UTC()

	summaryScores := make([]map[string]any, 0, len(result.Scores))
	for _, s := range result.Scores {
		summaryScores = append(summaryScores, map[string]any{
			"user_id":  s.ID,
			"seat":     s.Seat,
			"raw":      s.Raw,
			"adjusted": s.Adjusted,
			"total":    s.Total,
			"rank":     s.Rank,
			"knocker":  s.Knocker,
		})
	}
	for _, s := range result.Scores {
		pc := r.players[s.ID]
		if pc == nil || pc.IsBot {
			continue
		}
		summary := map[string]any{
			"room_id":      r.ID,
			"round":        result.Round,
			"knocker_seat": result.KnockerSeat,
			"my_seat":      s.Seat,
			"my_adjusted":  s.Adjusted,
			"my_rank":      s.Rank,
			"game_over":    gameOver,
			"scores":       summaryScores,
		}
		r.deps.Ledger.UpsertRoundHistoryWithEvents(s.ID, r.roundID, playedAt, summary, r.tape)
	}

	r.deps.Relay.PublishRoundSettled(r.ID, map[string]any{
		"round_id":     r.roundID,
		"round":        result.Round,
		"knocker_seat": result.KnockerSeat,
		"game_over":    gameOver,
		"scores":       summaryScores,
	})

	// Deferred seat changes apply now that the engine allows them.
	for userID := range r.pendingStandUps {
		delete(r.pendingStandUps, userID)
		r.releaseSeat(userID)
		if pc := r.players[userID]; pc != nil && !pc.Online {
			delete(r.players, userID)
		}
	}

	if gameOver {
		log.Printf("[Room %s] game over after round %d", r.ID, result.Round)
		return
	}
	r.maybeScheduleNextRound()
}

func (r *Room) maybeScheduleNextRound() {
	if r.roundActive() || !r.nextRoundAt.IsZero() {
		return
	}
	snap := r.game.Snapshot()
	if snap.Ended || len(r.seats) < 2 {
		return
	}
	r.nextRoundAt = time.Now().Add(r.Config.RoundDelay)
}

func (r *Room) releaseSeat(userID uint64) {
	pc := r.players[userID]
	if pc == nil || pc.Seat == golf.InvalidSeat {
		return
	}
	seat := pc.Seat
	if err := r.game.StandUp(seat); err != nil {
		log.Printf("[Room %s] stand up seat=%d failed: %v", r.ID, seat, err)
		return
	}
	delete(r.seats, seat)
	pc.Seat = golf.InvalidSeat
	if pc.IsBot {
		r.deps.Bots.Release(userID)
		delete(r.players, userID)
	}
	log.Printf("[Room %s] seat %d released (user %d)", r.ID, seat, userID)
	r.broadcastSeatUpdate(seat, pc, true)
}

// scheduleBots arms a think timer for every bot that may act right now.
func (r *Room) scheduleBots() {
	snap := r.game.Snapshot()
	if snap.Ended {
		return
	}
	switch snap.Phase {
	case golf.PhaseTypeInitialFlip:
		for _, p := range snap.Players {
			userID := r.seats[p.Seat]
			pc := r.players[userID]
			if pc == nil || !pc.IsBot {
				continue
			}
			if p.InitialFlips < snap.InitialFlipQuota {
				r.scheduleBot(userID)
			}
		}
	case golf.PhaseTypeAwaitingDraw, golf.PhaseTypeHoldingCard, golf.PhaseTypeWaitingForFlip:
		userID, ok := r.seats[snap.ActionSeat]
		if !ok {
			return
		}
		if pc := r.players[userID]; pc != nil && pc.IsBot {
			r.scheduleBot(userID)
		}
	}
}

func (r *Room) scheduleBot(userID uint64) {
	if r.botPending[userID] {
		return
	}
	inst := r.deps.Bots.Instance(userID)
	if inst == nil {
		return
	}
	r.botPending[userID] = true
	time.AfterFunc(inst.ThinkDelay, func() {
		r.Submit(Event{Type: EventBotAct, UserID: userID})
	})
}

func (r *Room) nextSeq() uint64 {
	r.serverSeq++
	return r.serverSeq
}

func (r *Room) broadcastEvent(ev golf.Event) {
	seq := r.nextSeq()
	typ := ev.Type.String()
	for _, pc := range r.players {
		if pc.IsBot || !pc.Online {
			continue
		}
		env := codec.Envelope(typ, r.ID, seq, codec.EventFor(ev, pc.Seat))
		r.deps.Broadcast(pc.UserID, codec.Encode(env))
	}

	// The persisted/relayed stream carries the spectator view so face-down
	// information never leaves the room.
	specEnv := codec.Envelope(typ, r.ID, seq, codec.EventFor(ev, golf.InvalidSeat))
	encoded := codec.Encode(specEnv)
	r.deps.Ledger.AppendLiveEvent(r.roundID, specEnv, encoded)
	r.deps.Relay.PublishRoomEvent(r.ID, encoded)
	r.tape = append(r.tape, ledger.EncodeEnvelope(seq, specEnv, encoded))
}

func (r *Room) sendSnapshot(userID uint64) {
	pc := r.players[userID]
	if pc == nil || pc.IsBot {
		return
	}
	env := codec.Envelope("room_snapshot", r.ID, r.nextSeq(), r.snapshotPayload(pc.Seat))
	r.deps.Broadcast(userID, codec.Encode(env))
}

func (r *Room) broadcastSnapshots(typ string) {
	seq := r.nextSeq()
	for _, pc := range r.players {
		if pc.IsBot || !pc.Online {
			continue
		}
		env := codec.Envelope(typ, r.ID, seq, r.snapshotPayload(pc.Seat))
		r.deps.Broadcast(pc.UserID, codec.Encode(env))
	}
}

func (r *Room) snapshotPayload(viewerSeat uint16) codec.SnapshotPayload {
	names := make(map[uint16]string, len(r.seats))
	online := make(map[uint16]bool, len(r.seats))
	for seat, userID := range r.seats {
		if pc := r.players[userID]; pc != nil {
			names[seat] = pc.Name
			online[seat] = pc.Online
		}
	}
	return codec.SnapshotFor(r.game.Snapshot(), viewerSeat, names, online)
}

func (r *Room) broadcastSeatUpdate(seat uint16, pc *PlayerConn, vacant bool) {
	payload := codec.SeatUpdatePayload{Seat: seat, Vacant: vacant}
	if !vacant && pc != nil {
		payload.UserID = pc.UserID
		payload.Name = pc.Name
		payload.Robot = pc.IsBot
	}
	seq := r.nextSeq()
	for _, p := range r.players {
		if p.IsBot || !p.Online {
			continue
		}
		env := codec.Envelope("seat_update", r.ID, seq, payload)
		r.deps.Broadcast(p.UserID, codec.Encode(env))
	}
}

func (r *Room) sendError(userID uint64, code, msg string, reqSeq uint64) {
	if userID == 0 {
		return
	}
	env := codec.Envelope("error", r.ID, 0, codec.ErrorPayload{Code: code, Message: msg, ReqSeq: reqSeq})
	r.deps.Broadcast(userID, codec.Encode(env))
}
