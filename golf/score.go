package golf

import (
	"sort"

	"golf-lite/card"
)

// CardValue returns a card's point value under the active rules. Point value
// is not intrinsic to the card: the same card scores differently in games
// with different HouseRules.
func CardValue(c card.Card, rules HouseRules) int {
	if c.IsJoker() {
		if rules.LuckySwing {
			return -5
		}
		return -2
	}
	switch r := c.Rank(); r {
	case 1:
		return 1
	case 2:
		return -2
	case 10:
		if rules.TenPenny {
			return 1
		}
		return 10
	case 11, 12:
		return 10
	case 13:
		if rules.SuperKings {
			return -2
		}
		return 0
	default:
		return int(r)
	}
}

// pairedJokerColumnScore is what a joker pair contributes under EagleEye.
const pairedJokerColumnScore = -8

// ColumnScore scores one column given its two cards.
func ColumnScore(a, b card.Card, rules HouseRules) int {
	if a.SameRank(b) {
		if a.IsJoker() && rules.EagleEye {
			return pairedJokerColumnScore
		}
		return 0
	}
	return CardValue(a, rules) + CardValue(b, rules)
}

// ScoreHand computes the raw column total for a hand. It reads the full hand;
// the engine only calls it once every slot has been revealed at round end.
func ScoreHand(h *Hand, rules HouseRules) int {
	cards := h.Cards()
	total := 0
	for col := 0; col < HandColumns; col++ {
		total += ColumnScore(cards[col], cards[col+HandColumns], rules)
	}
	return total
}

type PlayerScore struct {
	Seat     uint16
	ID       uint64
	Raw      int // column total before modifiers
	Adjusted int
	Total    int // cumulative game score after this round
	Rank     int // 1-based, ascending; ties share displayed order by seat
	Knocker  bool
}

type RoundResult struct {
	Round       int
	KnockerSeat uint16
	Scores      []PlayerScore // seat order
}

// Settle applies the post-score modifier pipeline in its fixed order:
// blackjack, knock adjustment, underdog bonus, tied shame. Order matters
// because each step reads the scores the previous one produced.
//
// players must be in seat order; knockerSeat may be InvalidSeat when the
// round was aborted without a knocker (scores still settle).
func Settle(players []*Player, knockerSeat uint16, rules HouseRules) *RoundResult {
	n := len(players)
	res := &RoundResult{KnockerSeat: knockerSeat, Scores: make([]PlayerScore, n)}

	adj := make([]int, n)
	for i, p := range players {
		raw := ScoreHand(p.Hand(), rules)
		res.Scores[i] = PlayerScore{
			Seat:    p.Seat,
			ID:      p.ID,
			Raw:     raw,
			Knocker: p.Seat == knockerSeat,
		}
		adj[i] = raw
	}

	// 1. Blackjack: a raw 21 overrides to 0.
	if rules.Blackjack {
		for i := range adj {
			if adj[i] == 21 {
				adj[i] = 0
			}
		}
	}

	// 2. Knock adjustment. "Lowest" here compares the knocker's step-1 score
	// against every other player's step-1 score.
	if ki := indexOfSeat(players, knockerSeat); ki >= 0 {
		lowest := true
		for i := range adj {
			if i != ki && adj[i] < adj[ki] {
				lowest = false
				break
			}
		}
		if rules.KnockPenalty && !lowest {
			adj[ki] += 10
		} else if rules.KnockBonus {
			adj[ki] -= 5
		}
	}

	// 3. Underdog bonus: the unique lowest scorer gets -3; ties exclude it.
	if rules.UnderdogBonus {
		if lo, unique := uniqueMin(adj); unique {
			adj[lo] -= 3
		}
	}

	// 4. Tied shame: everyone sharing the minimum gets +5 when at least two do.
	if rules.TiedShame {
		min, count := minAndCount(adj)
		if count > 1 {
			for i := range adj {
				if adj[i] == min {
					adj[i] += 5
				}
			}
		}
	}

	for i := range res.Scores {
		res.Scores[i].Adjusted = adj[i]
	}

	// Ascending ranking, stable by seat order. Display only.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return res.Scores[order[a]].Adjusted < res.Scores[order[b]].Adjusted
	})
	for rank, i := range order {
		res.Scores[i].Rank = rank + 1
	}

	return res
}

func indexOfSeat(players []*Player, seat uint16) int {
	for i, p := range players {
		if p.Seat == seat {
			return i
		}
	}
	return -1
}

func uniqueMin(vals []int) (idx int, unique bool) {
	if len(vals) == 0 {
		return -1, false
	}
	idx = 0
	count := 1
	for i := 1; i < len(vals); i++ {
		switch {
		case vals[i] < vals[idx]:
			idx = i
			count = 1
		case vals[i] == vals[idx]:
			count++
		}
	}
	return idx, count == 1
}

func minAndCount(vals []int) (min, count int) {
	min = vals[0]
	for _, v := range vals[1:] {
		if v < min {
			min = v
		}
	}
	for _, v := range vals {
		if v == min {
			count++
		}
	}
	return min, count
}
