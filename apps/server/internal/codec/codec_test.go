package codec

import (
	"encoding/json"
	"testing"

	"golf-lite/card"
	"golf-lite/golf"
)

func TestDecodeClientRejectsBadFrames(t *testing.T) {
	if _, err := DecodeClient([]byte("not json")); err == nil {
		t.Fatal("expected decode failure")
	}
	if _, err := DecodeClient([]byte(`{"seq":1}`)); err == nil {
		t.Fatal("expected missing type rejection")
	}
	env, err := DecodeClient([]byte(`{"type":"sit_down","seq":3,"payload":{"seat":2}}`))
	if err != nil {
		t.Fatalf("decode err: %v", err)
	}
	payload, err := DecodePayload[SitDownPayload](env)
	if err != nil {
		t.Fatalf("payload err: %v", err)
	}
	if payload.Seat != 2 {
		t.Fatalf("seat = %d, want 2", payload.Seat)
	}
}

func TestParseAction(t *testing.T) {
	act, err := ParseAction(ActionPayload{Type: "draw", Source: "discard"})
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if act.Type != golf.PlayerActionTypeDraw || act.Source != golf.DrawSourceDiscard {
		t.Fatalf("parsed %+v", act)
	}

	act, err = ParseAction(ActionPayload{Type: "swap", Pos: 4})
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if act.Type != golf.PlayerActionTypeSwap || act.Pos != 4 {
		t.Fatalf("parsed %+v", act)
	}

	if _, err := ParseAction(ActionPayload{Type: "draw"}); err == nil {
		t.Fatal("draw without source must be rejected")
	}
	if _, err := ParseAction(ActionPayload{Type: "teleport"}); err == nil {
		t.Fatal("unknown action must be rejected")
	}
}

func TestEventFor_MasksDeckDrawForOthers(t *testing.T) {
	ev := golf.Event{
		Type:   golf.EventTypeCardDrawn,
		Seat:   1,
		Card:   card.CardSpadeK,
		Source: golf.DrawSourceDeck,
	}

	// 抽牌只有本人能看到。
	if got := EventFor(ev, 1); got.Card != card.CardSpadeK.String() {
		t.Fatalf("actor view card = %q", got.Card)
	}
	if got := EventFor(ev, 0); got.Card != card.CardRear.String() {
		t.Fatalf("other view card = %q, want card back", got.Card)
	}
	if got := EventFor(ev, golf.InvalidSeat); got.Card != card.CardRear.String() {
		t.Fatalf("spectator view card = %q, want card back", got.Card)
	}

	// Discard draws are public information.
	ev.Source = golf.DrawSourceDiscard
	if got := EventFor(ev, 0); got.Card != card.CardSpadeK.String() {
		t.Fatalf("discard draw masked: %q", got.Card)
	}
}

func TestSnapshotFor_HidesFaceDownCards(t *testing.T) {
	g, err := golf.NewGame(golf.Config{MaxPlayers: 4, MinPlayers: 2, TotalRounds: 9, Seed: 11})
	if err != nil {
		t.Fatalf("NewGame err: %v", err)
	}
	if err := g.SitDown(0, 501, false); err != nil {
		t.Fatal(err)
	}
	if err := g.SitDown(1, 502, false); err != nil {
		t.Fatal(err)
	}
	if err := g.StartRound(); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Act(0, golf.Action{Type: golf.PlayerActionTypeFlip, Pos: 0}); err != nil {
		t.Fatal(err)
	}

	names := map[uint16]string{0: "alice", 1: "bob"}
	payload := SnapshotFor(g.Snapshot(), 1, names, nil)

	for _, p := range payload.Players {
		if p.Seat != 0 {
			continue
		}
		if p.Name != "alice" {
			t.Fatalf("seat 0 name = %q", p.Name)
		}
		if p.Slots[0].Card == "" || !p.Slots[0].FaceUp {
			t.Fatalf("flipped slot hidden from opponent: %+v", p.Slots[0])
		}
		for i := 1; i < len(p.Slots); i++ {
			if p.Slots[i].FaceUp {
				continue
			}
			if p.Slots[i].Card != card.CardRear.String() {
				t.Fatalf("face-down slot %d leaked %q to opponent", i, p.Slots[i].Card)
			}
		}
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := Envelope("seat_update", "room-1", 7, SeatUpdatePayload{Seat: 2, UserID: 501, Name: "alice"})
	data := Encode(env)

	var decoded ServerEnvelope
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal err: %v", err)
	}
	if decoded.Type != "seat_update" || decoded.ServerSeq != 7 || decoded.RoomID != "room-1" {
		t.Fatalf("envelope = %+v", decoded)
	}
	var payload SeatUpdatePayload
	if err := json.Unmarshal(decoded.Payload, &payload); err != nil {
		t.Fatalf("payload err: %v", err)
	}
	if payload.Seat != 2 || payload.UserID != 501 {
		t.Fatalf("payload = %+v", payload)
	}
}
