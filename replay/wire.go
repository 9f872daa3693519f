package replay

import (
	"golf-lite/card"
	"golf-lite/golf"
)

// WireEvent is the JSON shape of one engine event. Cards travel as their
// short string form ("As", "Td", "Joker"); hidden cards as "Rear".
type WireEvent struct {
	Type    string      `json:"type"`
	Seat    uint16      `json:"seat"`
	Card    string      `json:"card,omitempty"`
	Source  string      `json:"source,omitempty"`
	Pos     int         `json:"pos"`
	Removed string      `json:"removed,omitempty"`
	Phase   string      `json:"phase,omitempty"`
	Result  *WireResult `json:"result,omitempty"`
}

type WireResult struct {
	Round       int         `json:"round"`
	KnockerSeat uint16      `json:"knocker_seat"`
	Scores      []WireScore `json:"scores"`
}

type WireScore struct {
	Seat     uint16 `json:"seat"`
	UserID   uint64 `json:"user_id"`
	Raw      int    `json:"raw"`
	Adjusted int    `json:"adjusted"`
	Total    int    `json:"total"`
	Rank     int    `json:"rank"`
	Knocker  bool   `json:"knocker,omitempty"`
}

// WireSnapshot is the hero-filtered table state at the moment the tape
// begins: everything a client needs to lay out the table before playback.
type WireSnapshot struct {
	Round      int              `json:"round"`
	Phase      string           `json:"phase"`
	DealerSeat uint16           `json:"dealer_seat"`
	ActionSeat uint16           `json:"action_seat"`
	DiscardTop string           `json:"discard_top,omitempty"`
	DrawCount  int              `json:"draw_count"`
	Players    []WirePlayerSnap `json:"players"`
}

type WirePlayerSnap struct {
	Seat   uint16     `json:"seat"`
	UserID uint64     `json:"user_id"`
	Name   string     `json:"name,omitempty"`
	Slots  []WireSlot `json:"slots"`
	Total  int        `json:"total"`
}

type WireSlot struct {
	Card   string `json:"card"`
	FaceUp bool   `json:"face_up,omitempty"`
}

func cardString(c card.Card) string {
	if c == card.CardInvalid {
		return ""
	}
	return c.String()
}

// toWireEvent converts an engine event, hiding what the hero may not see: a
// card another player drew from the deck stays face-down on the wire.
func toWireEvent(ev golf.Event, hero uint16) WireEvent {
	out := WireEvent{
		Type: ev.Type.String(),
		Seat: ev.Seat,
		Pos:  ev.Pos,
	}
	c := ev.Card
	if ev.Type == golf.EventTypeCardDrawn && ev.Source == golf.DrawSourceDeck && ev.Seat != hero {
		c = card.CardRear
	}
	out.Card = cardString(c)
	if ev.Source != golf.DrawSourceNone {
		out.Source = ev.Source.String()
	}
	out.Removed = cardString(ev.Removed)
	if ev.Type == golf.EventTypeTurn {
		out.Phase = ev.Phase.String()
	}
	if ev.Result != nil {
		out.Result = toWireResult(ev.Result)
	}
	return out
}

func toWireResult(r *golf.RoundResult) *WireResult {
	out := &WireResult{Round: r.Round, KnockerSeat: r.KnockerSeat}
	for _, s := range r.Scores {
		out.Scores = append(out.Scores, WireScore{
			Seat:     s.Seat,
			UserID:   s.ID,
			Raw:      s.Raw,
			Adjusted: s.Adjusted,
			Total:    s.Total,
			Rank:     s.Rank,
			Knocker:  s.Knocker,
		})
	}
	return out
}

func toWireSnapshot(snap golf.Snapshot, hero uint16, names map[uint16]string) WireSnapshot {
	snap = snap.ViewFor(hero)
	out := WireSnapshot{
		Round:      snap.Round,
		Phase:      snap.Phase.String(),
		DealerSeat: snap.DealerSeat,
		ActionSeat: snap.ActionSeat,
		DiscardTop: cardString(snap.DiscardTop),
		DrawCount:  snap.DrawCount,
	}
	for _, p := range snap.Players {
		wp := WirePlayerSnap{
			Seat:   p.Seat,
			UserID: p.ID,
			Name:   names[p.Seat],
			Total:  p.TotalScore,
		}
		for _, s := range p.Slots {
			wp.Slots = append(wp.Slots, WireSlot{Card: cardString(s.Card), FaceUp: s.FaceUp})
		}
		out.Players = append(out.Players, wp)
	}
	return out
}
