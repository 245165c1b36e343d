package game

import "sort"

// Тип хода, который возвращают бот и планировщик таймаутов
type ActionType string

const (
	ActionAttack ActionType = "attack"
	ActionDefend ActionType = "defend"
	ActionTake   ActionType = "take"
	ActionPass   ActionType = "pass"
)

// Move — одно решение бота; применяется через те же Attack/Defend/Take/Pass,
// что и ходы людей, отдельного пути мутации состояния у ботов нет
type Move struct {
	Type ActionType
	Card *Card
}

// sortByCheapness сортирует карты от самых дешёвых: некозыри перед
// козырями, внутри группы по возрастанию достоинства
func sortByCheapness(cards []Card, trump Suit) {
	sort.Slice(cards, func(i, j int) bool {
		ti, tj := cards[i].Suit == trump, cards[j].Suit == trump
		if ti != tj {
			return !ti
		}
		return cards[i].Value() < cards[j].Value()
	})
}

// ChooseBotMove вычисляет ровно один ход для места-бота.
// Лёгкий бот играет первым легальным вариантом, средний бережёт козыри,
// сложный дополнительно предпочитает атаковать парными рангами
// и пользуется переводом
func (m *Match) ChooseBotMove(seatID int64) *Move {
	m.mu.Lock()
	defer m.mu.Unlock()

	seat, ok := m.Players[seatID]
	if !ok || m.Status != StatusInProgress || m.Winner != nil {
		return nil
	}
	if m.Turn != seatID {
		return nil
	}

	if seatID == m.DefenderID && len(m.Table)%2 != 0 {
		return m.botDefense(seat)
	}
	return m.botOffense(seat)
}

func (m *Match) botDefense(seat *Seat) *Move {
	attack := m.Table[len(m.Table)-1]

	// сложный бот сначала пробует перевести
	if seat.BotLevel == BotHard && m.Cfg.Mode == ModePerevodnoy {
		for _, c := range seat.Hand {
			if c.Rank == attack.Rank && m.canTransferWith(c) {
				card := c
				return &Move{Type: ActionDefend, Card: &card}
			}
		}
	}

	var beating []Card
	for _, c := range seat.Hand {
		cc := c
		if CanBeat(&attack, &cc, m.TrumpSuit) {
			beating = append(beating, c)
		}
	}
	if len(beating) == 0 {
		return &Move{Type: ActionTake}
	}

	sortByCheapness(beating, m.TrumpSuit)

	// средний и сложный не тратят козырь на мелкую атаку,
	// если стол уже дорогой, лёгкий просто бьёт чем может
	card := beating[0]
	if seat.BotLevel != BotEasy && card.Suit == m.TrumpSuit && attack.Suit != m.TrumpSuit && attack.Value() <= 8 && len(m.Table) >= 5 {
		return &Move{Type: ActionTake}
	}
	return &Move{Type: ActionDefend, Card: &card}
}

func (m *Match) botOffense(seat *Seat) *Move {
	if len(m.Table) == 0 {
		hand := append([]Card(nil), seat.Hand...)
		sortByCheapness(hand, m.TrumpSuit)

		// сложный бот ищет ранг, которого у него двое и больше:
		// задел под подкидывание
		if seat.BotLevel == BotHard {
			counts := make(map[Rank]int)
			for _, c := range seat.Hand {
				counts[c.Rank]++
			}
			for _, c := range hand {
				if counts[c.Rank] >= 2 && c.Suit != m.TrumpSuit {
					card := c
					return &Move{Type: ActionAttack, Card: &card}
				}
			}
		}

		card := hand[0]
		return &Move{Type: ActionAttack, Card: &card}
	}

	// закрытый бой: подкинуть или спасовать
	if len(m.Table)%2 == 0 {
		defender, ok := m.Players[m.DefenderID]
		if ok && len(defender.Hand) > len(m.Table)/2 {
			ranks := make(map[Rank]bool)
			for _, t := range m.Table {
				ranks[t.Rank] = true
			}

			var tossable []Card
			for _, c := range seat.Hand {
				if !ranks[c.Rank] {
					continue
				}
				// козыри не подкидываем, кроме сложного бота в конце колоды
				if c.Suit == m.TrumpSuit && !(seat.BotLevel == BotHard && len(m.Deck) == 0) {
					continue
				}
				tossable = append(tossable, c)
			}
			// лёгкий бот подкидывает не больше одной карты за бой
			if len(tossable) > 0 && !(seat.BotLevel == BotEasy && len(m.Table) >= 4) {
				sortByCheapness(tossable, m.TrumpSuit)
				card := tossable[0]
				return &Move{Type: ActionAttack, Card: &card}
			}
		}
		return &Move{Type: ActionPass}
	}

	// стол открыт — ждём защитника
	return nil
}

// TimeoutMove — синтетический ход за просрочившего игрока: защитник
// забирает, атакующий при выложенном столе пасует, при пустом — ходит
// самой дешёвой картой. Ход всегда легален по построению
func (m *Match) TimeoutMove(seatID int64) *Move {
	m.mu.Lock()
	defer m.mu.Unlock()

	seat, ok := m.Players[seatID]
	if !ok || m.Status != StatusInProgress || m.Winner != nil {
		return nil
	}

	if seatID == m.DefenderID {
		if len(m.Table) > 0 {
			return &Move{Type: ActionTake}
		}
		return nil
	}

	if len(m.Table) > 0 {
		if len(m.Table)%2 != 0 {
			// бой открыт, а таймаут у атакующего быть не должен
			return nil
		}
		return &Move{Type: ActionPass}
	}

	if len(seat.Hand) == 0 {
		return nil
	}
	hand := append([]Card(nil), seat.Hand...)
	sortByCheapness(hand, m.TrumpSuit)
	card := hand[0]
	return &Move{Type: ActionAttack, Card: &card}
}

// Apply применяет ход единым путём для людей, ботов и таймаутов
func (m *Match) Apply(seatID int64, mv *Move) error {
	if mv == nil {
		return ErrMatchNotActive
	}
	switch mv.Type {
	case ActionAttack:
		if mv.Card == nil {
			return ErrCardNotInHand
		}
		return m.Attack(seatID, *mv.Card)
	case ActionDefend:
		if mv.Card == nil {
			return ErrCardNotInHand
		}
		return m.Defend(seatID, *mv.Card)
	case ActionTake:
		return m.Take(seatID)
	case ActionPass:
		return m.Pass(seatID)
	}
	return ErrMatchNotActive
}
