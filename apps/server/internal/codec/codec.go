package codec

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golf-lite/card"
	"golf-lite/golf"
)

// ClientEnvelope is the single inbound frame shape. Payload is decoded a
// second time once Type is known.
type ClientEnvelope struct {
	Type    string          `json:"type"`
	Seq     uint64          `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client payload bodies, one per envelope type.
type (
	LoginPayload struct {
		Token string `json:"token"`
	}
	JoinRoomPayload struct {
		RoomID string `json:"room_id"`
	}
	SitDownPayload struct {
		Seat uint16 `json:"seat"`
	}
	AddBotPayload struct {
		Seat    uint16 `json:"seat"`
		Persona string `json:"persona,omitempty"`
	}
	ActionPayload struct {
		Type   string `json:"type"`
		Source string `json:"source,omitempty"`
		Pos    int    `json:"pos,omitempty"`
	}
)

// ServerEnvelope wraps every outbound frame with an ordering sequence and a
// server timestamp. The same envelope is what the ledger persists.
type ServerEnvelope struct {
	Type       string          `json:"type"`
	ServerSeq  uint64          `json:"server_seq"`
	ServerTsMs int64           `json:"server_ts_ms"`
	RoomID     string          `json:"room_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

type SlotPayload struct {
	Card   string `json:"card"`
	FaceUp bool   `json:"face_up"`
}

type PlayerPayload struct {
	UserID   uint64        `json:"user_id"`
	Seat     uint16        `json:"seat"`
	Name     string        `json:"name,omitempty"`
	Robot    bool          `json:"robot,omitempty"`
	Online   bool          `json:"online"`
	Slots    []SlotPayload `json:"slots"`
	FaceDown int           `json:"face_down"`
	Round    int           `json:"round_score"`
	Total    int           `json:"total_score"`
}

type SnapshotPayload struct {
	Round          int             `json:"round"`
	TotalRounds    int             `json:"total_rounds"`
	Phase          string          `json:"phase"`
	Ended          bool            `json:"ended"`
	DealerSeat     uint16          `json:"dealer_seat"`
	ActionSeat     uint16          `json:"action_seat"`
	HeldCard       string          `json:"held_card,omitempty"`
	HeldSource     string          `json:"held_source,omitempty"`
	KnockerSeat    uint16          `json:"knocker_seat"`
	FinalTurnSeats []uint16        `json:"final_turn_seats,omitempty"`
	DiscardTop     string          `json:"discard_top,omitempty"`
	DrawCount      int             `json:"draw_count"`
	DiscardCount   int             `json:"discard_count"`
	FlipOptional   bool            `json:"flip_optional"`
	Players        []PlayerPayload `json:"players"`
	Result         *ResultPayload  `json:"result,omitempty"`
}

type ScorePayload struct {
	UserID   uint64 `json:"user_id"`
	Seat     uint16 `json:"seat"`
	Raw      int    `json:"raw"`
	Adjusted int    `json:"adjusted"`
	Total    int    `json:"total"`
	Rank     int    `json:"rank"`
	Knocker  bool   `json:"knocker,omitempty"`
}

type ResultPayload struct {
	KnockerSeat uint16         `json:"knocker_seat"`
	Scores      []ScorePayload `json:"scores"`
}

type EventPayload struct {
	Seat    uint16         `json:"seat,omitempty"`
	Card    string         `json:"card,omitempty"`
	Source  string         `json:"source,omitempty"`
	Pos     int            `json:"pos,omitempty"`
	Removed string         `json:"removed,omitempty"`
	Phase   string         `json:"phase,omitempty"`
	Result  *ResultPayload `json:"result,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	ReqSeq  uint64 `json:"req_seq,omitempty"`
}

type LoginResponsePayload struct {
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"`
}

type SeatUpdatePayload struct {
	Seat   uint16 `json:"seat"`
	UserID uint64 `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Robot  bool   `json:"robot,omitempty"`
	Vacant bool   `json:"vacant,omitempty"`
}

func DecodeClient(data []byte) (*ClientEnvelope, error) {
	var env ClientEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode client envelope: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("client envelope missing type")
	}
	return &env, nil
}

func DecodePayload[T any](env *ClientEnvelope) (T, error) {
	var out T
	if len(env.Payload) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(env.Payload, &out); err != nil {
		return out, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return out, nil
}

// ParseAction maps the wire action onto an engine action.
func ParseAction(p ActionPayload) (golf.Action, error) {
	want := strings.ToLower(strings.TrimSpace(p.Type))
	var actType golf.ActionType
	found := false
	for t, s := range golf.PlayerActionTypeDictionary {
		if s == want {
			actType, found = t, true
			break
		}
	}
	if !found || actType == golf.PlayerActionTypeNone {
		return golf.Action{}, fmt.Errorf("unknown action type %q", p.Type)
	}
	act := golf.Action{Type: actType, Pos: p.Pos}
	if actType == golf.PlayerActionTypeDraw {
		switch strings.ToLower(strings.TrimSpace(p.Source)) {
		case "deck":
			act.Source = golf.DrawSourceDeck
		case "discard":
			act.Source = golf.DrawSourceDiscard
		default:
			return golf.Action{}, fmt.Errorf("draw requires source deck or discard, got %q", p.Source)
		}
	}
	return act, nil
}

// Envelope builds an outbound frame. The payload must marshal; a payload that
// cannot is a programming error, so the raw body degrades to null rather than
// dropping the frame.
func Envelope(typ, roomID string, serverSeq uint64, payload any) *ServerEnvelope {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte("null")
	}
	return &ServerEnvelope{
		Type:       typ,
		ServerSeq:  serverSeq,
		ServerTsMs: time.Now().UnixMilli(),
		RoomID:     roomID,
		Payload:    raw,
	}
}

func Encode(env *ServerEnvelope) []byte {
	raw, err := json.Marshal(env)
	if err != nil {
		return []byte(`{"type":"error","payload":{"code":"encode_failed"}}`)
	}
	return raw
}

func cardString(c card.Card) string {
	if c == card.CardInvalid {
		return ""
	}
	return c.String()
}

func sourceString(s golf.DrawSource) string {
	switch s {
	case golf.DrawSourceDeck:
		return "deck"
	case golf.DrawSourceDiscard:
		return "discard"
	}
	return ""
}

// SnapshotFor projects the engine snapshot to what viewerSeat may see and
// converts it to the wire shape. names/online carry room-level metadata the
// engine does not track.
func SnapshotFor(snap golf.Snapshot, viewerSeat uint16, names map[uint16]string, online map[uint16]bool) SnapshotPayload {
	view := snap.ViewFor(viewerSeat)

	out := SnapshotPayload{
		Round:          view.Round,
		TotalRounds:    view.TotalRounds,
		Phase:          view.Phase.String(),
		Ended:          view.Ended,
		DealerSeat:     view.DealerSeat,
		ActionSeat:     view.ActionSeat,
		HeldCard:       cardString(view.HeldCard),
		HeldSource:     sourceString(view.HeldSource),
		KnockerSeat:    view.KnockerSeat,
		FinalTurnSeats: view.FinalTurnSeats,
		DiscardTop:     cardString(view.DiscardTop),
		DrawCount:      view.DrawCount,
		DiscardCount:   view.DiscardCount,
		FlipOptional:   view.FlipOptional,
		Result:         resultPayload(view.LastResult),
	}
	for _, p := range view.Players {
		pp := PlayerPayload{
			UserID:   p.ID,
			Seat:     p.Seat,
			Name:     names[p.Seat],
			Robot:    p.Robot,
			Online:   online == nil || online[p.Seat],
			FaceDown: p.FaceDown,
			Round:    p.RoundScore,
			Total:    p.TotalScore,
		}
		for _, slot := range p.Slots {
			pp.Slots = append(pp.Slots, SlotPayload{Card: cardString(slot.Card), FaceUp: slot.FaceUp})
		}
		out.Players = append(out.Players, pp)
	}
	return out
}

// EventFor converts an engine event for one viewer. A deck draw stays private
// to the drawing seat until a later hand_update or discard makes it public.
func EventFor(ev golf.Event, viewerSeat uint16) EventPayload {
	out := EventPayload{
		Seat:    ev.Seat,
		Card:    cardString(ev.Card),
		Source:  sourceString(ev.Source),
		Pos:     ev.Pos,
		Removed: cardString(ev.Removed),
		Result:  resultPayload(ev.Result),
	}
	if ev.Type == golf.EventTypeTurn {
		out.Phase = ev.Phase.String()
	}
	if ev.Type == golf.EventTypeCardDrawn && ev.Source == golf.DrawSourceDeck && ev.Seat != viewerSeat {
		out.Card = card.CardRear.String()
	}
	return out
}

func resultPayload(r *golf.RoundResult) *ResultPayload {
	if r == nil {
		return nil
	}
	out := &ResultPayload{KnockerSeat: r.KnockerSeat}
	for _, s := range r.Scores {
		out.Scores = append(out.Scores, ScorePayload{
			UserID:   s.ID,
			Seat:     s.Seat,
			Raw:      s.Raw,
			Adjusted: s.Adjusted,
			Total:    s.Total,
			Rank:     s.Rank,
			Knocker:  s.Knocker,
		})
	}
	return out
}
