package golf

import (
	"testing"

	"golf-lite/card"
)

func TestCardValue(t *testing.T) {
	base := HouseRules{}
	cases := []struct {
		name  string
		c     card.Card
		rules HouseRules
		want  int
	}{
		{"ace", card.CardSpadeA, base, 1},
		{"two", card.CardHeart2, base, -2},
		{"seven", card.CardClub7, base, 7},
		{"ten", card.CardDiamondT, base, 10},
		{"jack", card.CardSpadeJ, base, 10},
		{"queen", card.CardHeartQ, base, 10},
		{"king", card.CardClubK, base, 0},
		{"king super", card.CardClubK, HouseRules{SuperKings: true}, -2},
		{"ten penny", card.CardDiamondT, HouseRules{TenPenny: true}, 1},
		{"joker", card.CardJokerA, base, -2},
		{"joker lucky swing", card.CardJokerB, HouseRules{LuckySwing: true}, -5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CardValue(tc.c, tc.rules); got != tc.want {
				t.Fatalf("CardValue(%v) = %d, want %d", tc.c, got, tc.want)
			}
		})
	}
}

// 列配对规则：同点数的一列永远记 0 分，与牌面值和规则开关无关。
func TestColumnPairLaw(t *testing.T) {
	ruleSets := []HouseRules{
		{},
		{SuperKings: true, TenPenny: true},
		{LuckySwing: true},
		{SuperKings: true, TenPenny: true, LuckySwing: true},
	}
	pairs := [][2]card.Card{
		{card.CardSpadeA, card.CardHeartA},
		{card.CardSpade2, card.CardDiamond2},
		{card.CardClubT, card.CardHeartT},
		{card.CardSpadeK, card.CardClubK},
		{card.CardHeartQ, card.CardDiamondQ},
	}
	for _, rules := range ruleSets {
		for _, pair := range pairs {
			if got := ColumnScore(pair[0], pair[1], rules); got != 0 {
				t.Fatalf("ColumnScore(%v, %v, %+v) = %d, want 0", pair[0], pair[1], rules, got)
			}
		}
	}
}

func TestColumnScore_Jokers(t *testing.T) {
	if got := ColumnScore(card.CardJokerA, card.CardJokerB, HouseRules{}); got != 0 {
		t.Fatalf("paired jokers without eagle eye = %d, want 0", got)
	}
	if got := ColumnScore(card.CardJokerA, card.CardJokerB, HouseRules{EagleEye: true}); got != -8 {
		t.Fatalf("paired jokers with eagle eye = %d, want -8", got)
	}
	// A joker never pairs with a ranked card.
	got := ColumnScore(card.CardJokerA, card.CardSpade5, HouseRules{})
	if got != -2+5 {
		t.Fatalf("joker+5 = %d, want 3", got)
	}
}

func newScoredPlayer(seat uint16, cards [HandSize]card.Card) *Player {
	p := &Player{ID: uint64(seat) + 1, Seat: seat}
	p.hand.Deal(cards[:])
	for i := 0; i < HandSize; i++ {
		p.hand.Flip(i)
	}
	return p
}

// The worked example: columns (5,K)=5, (5,2)=3, (3,J)=13, total 21.
func TestScoreHand_WorkedExample(t *testing.T) {
	hand := [HandSize]card.Card{
		card.CardClub5, card.CardDiamond5, card.CardSpade3,
		card.CardHeartK, card.CardClub2, card.CardSpadeJ,
	}
	p := newScoredPlayer(0, hand)
	if got := ScoreHand(p.Hand(), HouseRules{}); got != 21 {
		t.Fatalf("raw score = %d, want 21", got)
	}

	other := newScoredPlayer(1, [HandSize]card.Card{
		card.CardSpade9, card.CardHeart9, card.CardClub9,
		card.CardDiamond9, card.CardSpadeT, card.CardHeartT,
	})

	res := Settle([]*Player{p, other}, InvalidSeat, HouseRules{Blackjack: true})
	if res.Scores[0].Adjusted != 0 {
		t.Fatalf("blackjack adjusted = %d, want 0", res.Scores[0].Adjusted)
	}
	res = Settle([]*Player{p, other}, InvalidSeat, HouseRules{})
	if res.Scores[0].Adjusted != 21 {
		t.Fatalf("no blackjack adjusted = %d, want 21", res.Scores[0].Adjusted)
	}
}

func handWithRaw(t *testing.T, raw int) [HandSize]card.Card {
	t.Helper()
	// Columns: (x, K)=x, (4,9)=13... keep it simple: use distinct ranks per
	// column, built from a small table of known raws.
	switch raw {
	case 3:
		return [HandSize]card.Card{
			card.CardSpadeA, card.CardHeart2, card.CardClub4,
			card.CardHeartK, card.CardSpadeK, card.CardDiamondK,
		} // 1 + (-2) + 4
	case 10:
		return [HandSize]card.Card{
			card.CardSpade3, card.CardHeart3, card.CardClub4,
			card.CardHeartK, card.CardSpadeK, card.CardDiamondK,
		} // 3 + 3 + 4
	case 20:
		return [HandSize]card.Card{
			card.CardSpade8, card.CardHeart8, card.CardClub4,
			card.CardHeartK, card.CardSpadeK, card.CardDiamondK,
		} // 8 + 8 + 4
	default:
		t.Fatalf("no fixture hand for raw %d", raw)
		return [HandSize]card.Card{}
	}
}

func TestSettle_KnockAdjustment(t *testing.T) {
	cases := []struct {
		name        string
		rules       HouseRules
		knockerRaw  int
		otherRaw    int
		wantKnocker int
	}{
		{"bonus when lowest", HouseRules{KnockBonus: true, KnockPenalty: true}, 3, 10, -2},
		{"penalty when not lowest", HouseRules{KnockBonus: true, KnockPenalty: true}, 10, 3, 20},
		{"bonus without penalty rule", HouseRules{KnockBonus: true}, 10, 3, 5},
		{"no knock rules", HouseRules{}, 10, 3, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			knocker := newScoredPlayer(0, handWithRaw(t, tc.knockerRaw))
			other := newScoredPlayer(1, handWithRaw(t, tc.otherRaw))
			res := Settle([]*Player{knocker, other}, 0, tc.rules)
			if res.Scores[0].Adjusted != tc.wantKnocker {
				t.Fatalf("knocker adjusted = %d, want %d", res.Scores[0].Adjusted, tc.wantKnocker)
			}
			if !res.Scores[0].Knocker || res.Scores[1].Knocker {
				t.Fatalf("knocker flags wrong: %+v", res.Scores)
			}
		})
	}
}

func TestSettle_UnderdogAndTiedShame(t *testing.T) {
	// Unique lowest gets -3.
	a := newScoredPlayer(0, handWithRaw(t, 3))
	b := newScoredPlayer(1, handWithRaw(t, 10))
	c := newScoredPlayer(2, handWithRaw(t, 20))
	res := Settle([]*Player{a, b, c}, InvalidSeat, HouseRules{UnderdogBonus: true})
	if res.Scores[0].Adjusted != 0 {
		t.Fatalf("underdog adjusted = %d, want 0", res.Scores[0].Adjusted)
	}

	// Tied lowest: underdog is excluded, tied shame kicks in.
	a = newScoredPlayer(0, handWithRaw(t, 3))
	b = newScoredPlayer(1, handWithRaw(t, 3))
	c = newScoredPlayer(2, handWithRaw(t, 20))
	res = Settle([]*Player{a, b, c}, InvalidSeat, HouseRules{UnderdogBonus: true, TiedShame: true})
	if res.Scores[0].Adjusted != 8 || res.Scores[1].Adjusted != 8 {
		t.Fatalf("tied shame adjusted = %d/%d, want 8/8", res.Scores[0].Adjusted, res.Scores[1].Adjusted)
	}
	if res.Scores[2].Adjusted != 20 {
		t.Fatalf("third player adjusted = %d, want 20", res.Scores[2].Adjusted)
	}
}

func TestSettle_Ranking(t *testing.T) {
	a := newScoredPlayer(0, handWithRaw(t, 20))
	b := newScoredPlayer(1, handWithRaw(t, 3))
	c := newScoredPlayer(2, handWithRaw(t, 10))
	res := Settle([]*Player{a, b, c}, InvalidSeat, HouseRules{})
	wantRanks := []int{3, 1, 2}
	for i, want := range wantRanks {
		if res.Scores[i].Rank != want {
			t.Fatalf("seat %d rank = %d, want %d", i, res.Scores[i].Rank, want)
		}
	}

	// Ties keep seat order for display.
	a = newScoredPlayer(0, handWithRaw(t, 10))
	b = newScoredPlayer(1, handWithRaw(t, 10))
	res = Settle([]*Player{a, b}, InvalidSeat, HouseRules{})
	if res.Scores[0].Rank != 1 || res.Scores[1].Rank != 2 {
		t.Fatalf("tie ranks = %d/%d, want 1/2", res.Scores[0].Rank, res.Scores[1].Rank)
	}
}
