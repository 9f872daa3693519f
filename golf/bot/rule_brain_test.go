package bot

import (
	"testing"

	"golf-lite/card"
	"golf-lite/golf"
)

// calmBrain has zero randomness so every decision is a pure function of the view.
func calmBrain(mut func(*PersonalityProfile)) *RuleBrain {
	profile := PersonalityProfile{RiskTolerance: 0.5, Aggression: 0.5, Patience: 0.5}
	if mut != nil {
		mut(&profile)
	}
	return NewRuleBrain(&Persona{ID: "test", Name: "Test", Brain: profile}, 1)
}

func freshView() GameView {
	v := GameView{
		MySeat:      0,
		Phase:       golf.PhaseTypeAwaitingDraw,
		FaceDown:    golf.HandSize,
		KnockerSeat: golf.InvalidSeat,
	}
	for i := range v.MySlots {
		v.MySlots[i] = card.CardRear
	}
	return v
}

func TestChooseInitialFlips_DistinctColumns(t *testing.T) {
	b := calmBrain(nil)
	view := freshView()
	view.Phase = golf.PhaseTypeInitialFlip
	view.FlipsLeft = 2

	picks := b.ChooseInitialFlips(view)
	if len(picks) != 2 {
		t.Fatalf("picks = %v, want 2 entries", picks)
	}
	if picks[0]%golf.HandColumns == picks[1]%golf.HandColumns {
		t.Fatalf("picks %v share a column", picks)
	}
}

func TestChooseDrawSource(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*GameView)
		prof func(*PersonalityProfile)
		want golf.DrawSource
	}{
		{
			name: "joker is always taken",
			mut:  func(v *GameView) { v.DiscardTop = card.CardJokerA },
			want: golf.DrawSourceDiscard,
		},
		{
			name: "king is always taken",
			mut:  func(v *GameView) { v.DiscardTop = card.CardHeartK },
			want: golf.DrawSourceDiscard,
		},
		{
			name: "low value is taken",
			mut:  func(v *GameView) { v.DiscardTop = card.CardSpadeA },
			prof: func(p *PersonalityProfile) { p.Patience = 0 },
			want: golf.DrawSourceDiscard,
		},
		{
			name: "pair completion with hidden partner",
			mut: func(v *GameView) {
				v.DiscardTop = card.CardHeart8
				v.MySlots[0] = card.CardSpade8
				v.MyFaceUp[0] = true
				v.FaceDown = 5
			},
			prof: func(p *PersonalityProfile) { p.Patience = 1 },
			want: golf.DrawSourceDiscard,
		},
		{
			name: "replacement beats a visible queen",
			mut: func(v *GameView) {
				v.DiscardTop = card.CardClub5
				v.MySlots[2] = card.CardHeartQ
				v.MyFaceUp[2] = true
				v.FaceDown = 5
			},
			prof: func(p *PersonalityProfile) { p.Patience = 0 },
			want: golf.DrawSourceDiscard,
		},
		{
			name: "mediocre card is left alone",
			mut:  func(v *GameView) { v.DiscardTop = card.CardDiamond9 },
			prof: func(p *PersonalityProfile) { p.Patience = 1 },
			want: golf.DrawSourceDeck,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := calmBrain(tc.prof)
			view := freshView()
			tc.mut(&view)
			if got := b.ChooseDrawSource(view); got != tc.want {
				t.Fatalf("ChooseDrawSource = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestChooseSwapPos_PairsWithVisiblePartner(t *testing.T) {
	b := calmBrain(nil)
	view := freshView()
	view.Phase = golf.PhaseTypeHoldingCard
	view.HeldCard = card.CardHeart7
	view.HeldSource = golf.DrawSourceDeck
	view.MySlots[3] = card.CardSpade7
	view.MyFaceUp[3] = true
	view.FaceDown = 5

	pos, ok := b.ChooseSwapPos(view)
	if !ok || pos != 0 {
		t.Fatalf("swap pos = %d/%v, want 0 (partner of the visible seven)", pos, ok)
	}
}

func TestChooseSwapPos_DiscardsWhenNothingHelps(t *testing.T) {
	b := calmBrain(nil)
	view := freshView()
	view.Phase = golf.PhaseTypeHoldingCard
	view.HeldCard = card.CardHeartQ
	view.HeldSource = golf.DrawSourceDeck
	// All slots visible and already cheaper than a queen.
	low := [golf.HandSize]card.Card{
		card.CardSpadeA, card.CardHeart2, card.CardClub3,
		card.CardDiamond4, card.CardSpade5, card.CardHeart6,
	}
	for i, c := range low {
		view.MySlots[i] = c
		view.MyFaceUp[i] = true
	}
	view.FaceDown = 0

	if pos, ok := b.ChooseSwapPos(view); ok {
		t.Fatalf("expected discard, got swap into %d", pos)
	}
}

func TestChooseSwapPos_ForcedSwapBuriesFaceDown(t *testing.T) {
	b := calmBrain(nil)
	view := freshView()
	view.Phase = golf.PhaseTypeHoldingCard
	view.HeldCard = card.CardHeartQ
	view.HeldSource = golf.DrawSourceDiscard
	low := [golf.HandSize]card.Card{
		card.CardSpadeA, card.CardHeart2, card.CardClub3,
		card.CardDiamond4, card.CardSpade5, card.CardHeart6,
	}
	for i, c := range low {
		view.MySlots[i] = c
		view.MyFaceUp[i] = true
	}
	view.MySlots[5] = card.CardRear
	view.MyFaceUp[5] = false
	view.FaceDown = 1

	pos, ok := b.ChooseSwapPos(view)
	if !ok {
		t.Fatal("forced swap must return a position")
	}
	if pos != 5 {
		t.Fatalf("forced swap pos = %d, want the face-down slot 5", pos)
	}
}

func TestChooseFlipPos_PrefersVisiblePartner(t *testing.T) {
	b := calmBrain(nil)
	view := freshView()
	view.Phase = golf.PhaseTypeWaitingForFlip
	view.MySlots[4] = card.CardHeart9
	view.MyFaceUp[4] = true
	view.FaceDown = 5

	// Slot 1 is the hidden partner of the visible nine.
	if pos := b.ChooseFlipPos(view); pos != 1 {
		t.Fatalf("flip pos = %d, want 1", pos)
	}
}

func TestSkipFlip_NeverWithManyHidden(t *testing.T) {
	b := calmBrain(func(p *PersonalityProfile) { p.Patience = 1 })
	view := freshView()
	view.FlipOptional = true
	view.FaceDown = 3
	for i := 0; i < 50; i++ {
		if b.SkipFlip(view) {
			t.Fatal("skipped a flip with three cards still hidden")
		}
	}
}

func TestWantsEarlyKnock(t *testing.T) {
	rules := golf.HouseRules{EarlyKnock: true}

	// A bad hand never knocks, regardless of nerve.
	b := calmBrain(func(p *PersonalityProfile) { p.Aggression = 1 })
	view := freshView()
	view.Rules = rules
	if b.WantsEarlyKnock(view) {
		t.Fatal("knocked with six hidden cards")
	}

	// Once someone knocked, nobody knocks again.
	view.KnockerSeat = 1
	if b.WantsEarlyKnock(view) {
		t.Fatal("knocked after another knocker")
	}

	// Rule disabled.
	view.KnockerSeat = golf.InvalidSeat
	view.Rules = golf.HouseRules{}
	if b.WantsEarlyKnock(view) {
		t.Fatal("knocked with early knock disabled")
	}

	// An excellent fully-revealed hand knocks eventually.
	view = freshView()
	view.Rules = rules
	twos := [golf.HandSize]card.Card{
		card.CardSpade2, card.CardHeart4, card.CardClubA,
		card.CardDiamond3, card.CardSpadeA, card.CardHeart3,
	}
	for i, c := range twos {
		view.MySlots[i] = c
		view.MyFaceUp[i] = true
	}
	view.FaceDown = 0
	knocked := false
	for i := 0; i < 100 && !knocked; i++ {
		knocked = b.WantsEarlyKnock(view)
	}
	if !knocked {
		t.Fatal("never knocked on a near-perfect hand")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if r.Count() != 8 {
		t.Fatalf("builtin persona count = %d, want 8", r.Count())
	}
	if p := r.Get("shark"); p == nil || p.Name != "Marlena" {
		t.Fatalf("shark lookup = %+v", p)
	}

	// External definitions override by ID and append new ones in order.
	err := r.LoadFromJSON([]byte(`[
		{"id":"shark","name":"Marlena II","brain":{"riskTolerance":0.9,"aggression":0.9,"patience":0.9,"randomness":0}},
		{"id":"custom","name":"Custom","brain":{"riskTolerance":0.1,"aggression":0.1,"patience":0.1,"randomness":0.1}}
	]`))
	if err != nil {
		t.Fatalf("LoadFromJSON err: %v", err)
	}
	if r.Count() != 9 {
		t.Fatalf("persona count after load = %d, want 9", r.Count())
	}
	if p := r.Get("shark"); p.Name != "Marlena II" {
		t.Fatalf("override failed: %+v", p)
	}
	all := r.All()
	if all[len(all)-1].ID != "custom" {
		t.Fatalf("new persona not appended: %v", all[len(all)-1].ID)
	}
}
