package golf

import "golf-lite/card"

// EventType identifies an outbound engine event. Events carry enough data
// for a transport layer to rebuild client state without re-querying the game.
type EventType byte

const (
	EventTypeCardDrawn  EventType = 1
	EventTypeHandUpdate EventType = 2
	EventTypeDiscard    EventType = 3
	EventTypeTurn       EventType = 4
	EventTypeKnock      EventType = 5
	EventTypeRoundOver  EventType = 6
	EventTypeGameOver   EventType = 7
)

var EventTypeDictionary = map[EventType]string{
	EventTypeCardDrawn:  "card_drawn",
	EventTypeHandUpdate: "hand_update",
	EventTypeDiscard:    "discard",
	EventTypeTurn:       "turn",
	EventTypeKnock:      "knock",
	EventTypeRoundOver:  "round_over",
	EventTypeGameOver:   "game_over",
}

func (e EventType) String() string {
	if s, ok := EventTypeDictionary[e]; ok {
		return s
	}
	return "unknown"
}

// Event is a flat record; which fields are meaningful depends on Type.
//
//	CardDrawn:  Seat, Card, Source (deck-drawn cards are private to Seat
//	            until the transport has filtered per viewer)
//	HandUpdate: Seat, Pos, Card (now face-up), Removed (swap only)
//	Discard:    Card = new discard top (CardInvalid when the pile emptied)
//	Turn:       Seat = next to act, Phase
//	Knock:      Seat = knocker
//	RoundOver:  Result
//	GameOver:   Result (final round); cumulative totals live in Result.Scores
type Event struct {
	Type    EventType
	Seat    uint16
	Card    card.Card
	Source  DrawSource
	Pos     int
	Removed card.Card
	Phase   Phase
	Result  *RoundResult
}
