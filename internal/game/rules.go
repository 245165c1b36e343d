package game

// CanBeat решает, бьёт ли карта defend карту attack при данном козыре.
// Одинаковая масть — побеждает строго большее достоинство.
// Козырь бьёт любую некозырную карту. Разные некозырные масти
// друг друга не бьют никогда
func CanBeat(attack, defend *Card, trump Suit) bool {
	if attack == nil || defend == nil {
		return false
	}

	if attack.Suit == defend.Suit {
		return defend.Value() > attack.Value()
	}

	if defend.Suit == trump && attack.Suit != trump {
		return true
	}

	return false
}

// NextPlayerIndex возвращает следующий индекс в ротации с переходом по кругу
func NextPlayerIndex(current, total int) int {
	if total == 0 {
		return 0
	}
	return (current + 1) % total
}

// updateTurn фиксирует атакующего и защитника начиная с кандидата idx.
// Места с пустой рукой пропускаются; количество попыток ограничено длиной
// ротации. Если карты кончились у всех — состояние не меняется (вырожденный
// случай, до него должен срабатывать game-over).
// Защитник может остаться нулевым, если кроме атакующего никого с картами
// не нашлось — известный краевой случай, действия в нём отвергает валидация
func (m *Match) updateTurn(idx int) {
	total := len(m.PlayerOrder)
	if total == 0 {
		return
	}

	attackerIdx := -1
	for i := 0; i < total; i++ {
		cand := (idx + i) % total
		if len(m.Players[m.PlayerOrder[cand]].Hand) > 0 {
			attackerIdx = cand
			break
		}
	}
	if attackerIdx == -1 {
		// у всех пустые руки; сюда попадать не должны
		return
	}

	m.AttackerID = m.PlayerOrder[attackerIdx]

	m.DefenderID = 0
	for i := 1; i <= total; i++ {
		cand := (attackerIdx + i) % total
		id := m.PlayerOrder[cand]
		if id == m.AttackerID {
			continue
		}
		if len(m.Players[id].Hand) > 0 {
			m.DefenderID = id
			break
		}
	}

	m.Turn = m.AttackerID
	m.Phase = PhaseAwaitingAttack
}
