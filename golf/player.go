package golf

type Player struct {
	ID    uint64
	Seat  uint16
	Robot bool

	hand Hand

	initialFlips int // flips performed during the initial reveal

	roundScore int // adjusted score of the last settled round
	totalScore int // cumulative across rounds
}

func (p *Player) SeatID() uint16 { return p.Seat }
func (p *Player) IsRobot() bool  { return p.Robot }

func (p *Player) Hand() *Hand { return &p.hand }

func (p *Player) RoundScore() int { return p.roundScore }
func (p *Player) TotalScore() int { return p.totalScore }

func (p *Player) ResetForNewRound() {
	p.hand = Hand{}
	p.initialFlips = 0
	p.roundScore = 0
}

func (p *Player) addScore(adjusted int) {
	p.roundScore = adjusted
	p.totalScore += adjusted
}

type PlayerNode struct {
	Player *Player
	SeatID uint16
	Next   *PlayerNode
}

// WalkOnce 遍历链表一圈（可从任意 start 开始），支持 break。
// fn 返回 true 表示“找到/停止”，false 表示继续。
func (n *PlayerNode) WalkOnce(fn func(*PlayerNode) bool) *PlayerNode {
	if n == nil {
		return nil
	}
	cur := n
	for {
		if fn(cur) {
			return cur
		}
		cur = cur.Next
		if cur == nil || cur == n {
			break
		}
	}
	return nil
}

// WalkAll 遍历一圈，不中断
func (n *PlayerNode) WalkAll(fn func(cur *PlayerNode)) {
	n.WalkOnce(func(cur *PlayerNode) bool {
		fn(cur)
		return false
	})
}
