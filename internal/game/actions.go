package game

import "errors"

// Таксономия отказов: сообщаются только действующему игроку,
// состояние матча не меняется
var (
	ErrMatchNotActive   = errors.New("игра не идёт")
	ErrMatchNotFinished = errors.New("игра ещё не закончена")
	ErrNotSeated        = errors.New("игрок не за этим столом")
	ErrNotYourTurn      = errors.New("сейчас не ваш ход")
	ErrNotDefender      = errors.New("вы не защищаетесь")
	ErrCardNotInHand    = errors.New("карты нет в руке")
	ErrCannotBeat       = errors.New("эта карта не бьёт")
	ErrWrongRankToss    = errors.New("подкидывать можно только ранги со стола")
	ErrTossLimit        = errors.New("защитнику нечем ответить на столько карт")
	ErrTableEmpty       = errors.New("на столе нет карт")
	ErrBoutOpen         = errors.New("бой ещё не закрыт")
	ErrNoTransfer       = errors.New("перевод в этом режиме недоступен")
	ErrTransferTooBig   = errors.New("следующему игроку нечем принять перевод")
	ErrNoDefender       = errors.New("защитник не определён")
)

// checkActive — общая предпроверка для всех действий
func (m *Match) checkActive(seatID int64) (*Seat, error) {
	if m.Status != StatusInProgress || m.Winner != nil {
		return nil, ErrMatchNotActive
	}
	seat, ok := m.Players[seatID]
	if !ok {
		return nil, ErrNotSeated
	}
	return seat, nil
}

// Attack кладёт карту атаки или подкидывает. Ход легален, если сейчас
// очередь игрока, либо стол непуст и закрыт (чётен) и игрок — любая
// атакующая сторона, подкидывающая ранг, уже лежащий на столе.
// Подкинуть больше, чем защитник способен отбить, нельзя
func (m *Match) Attack(seatID int64, card Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seat, err := m.checkActive(seatID)
	if err != nil {
		return err
	}

	// вырожденное состояние: защитника нет — атаковать некого
	if m.DefenderID == 0 {
		return ErrNoDefender
	}

	tossing := seatID != m.Turn
	if tossing {
		if len(m.Table) == 0 || len(m.Table)%2 != 0 || seatID == m.DefenderID {
			return ErrNotYourTurn
		}
	} else if seatID == m.DefenderID {
		// очередь защитника — это очередь защищаться, не атаковать
		return ErrNotDefender
	}

	if !seat.hasCard(card) {
		return ErrCardNotInHand
	}

	if len(m.Table) > 0 {
		found := false
		for _, t := range m.Table {
			if t.Rank == card.Rank {
				found = true
				break
			}
		}
		if !found {
			return ErrWrongRankToss
		}

		defender, ok := m.Players[m.DefenderID]
		if !ok || len(defender.Hand) <= len(m.Table)/2 {
			return ErrTossLimit
		}
	}

	seat.removeCard(card)
	m.Table = append(m.Table, card)
	m.Turn = m.DefenderID
	m.Phase = PhaseAwaitingDefense
	m.appendLog("%s атакует: %s", seat.Name, card.String())
	return nil
}

// Defend бьёт последнюю карту атаки. В режиме с переводом защитник может
// вместо этого положить карту того же ранга, что и весь стол, —
// роль защитника переходит к следующему месту в ротации
func (m *Match) Defend(seatID int64, card Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seat, err := m.checkActive(seatID)
	if err != nil {
		return err
	}
	if seatID != m.DefenderID {
		return ErrNotDefender
	}
	if len(m.Table) == 0 || len(m.Table)%2 == 0 {
		return ErrTableEmpty
	}
	if !seat.hasCard(card) {
		return ErrCardNotInHand
	}

	attack := m.Table[len(m.Table)-1]
	if !CanBeat(&attack, &card, m.TrumpSuit) {
		if m.Cfg.Mode == ModePerevodnoy && m.canTransferWith(card) {
			return m.transferLocked(seat, card)
		}
		return ErrCannotBeat
	}

	// перевод возможен и картой, которая била бы: даём игроку выбор
	// через явный флаг нельзя — протокол один, поэтому сперва бьём

	seat.removeCard(card)
	m.Table = append(m.Table, card)
	m.Turn = m.AttackerID
	m.Phase = PhaseAwaitingAttack
	m.appendLog("%s отбивается: %s", seat.Name, card.String())
	return nil
}

// Transfer — явный перевод (перевёдный режим): карта того же ранга, что
// весь стол, перекладывает обязанность защиты на следующего игрока
func (m *Match) Transfer(seatID int64, card Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seat, err := m.checkActive(seatID)
	if err != nil {
		return err
	}
	if seatID != m.DefenderID {
		return ErrNotDefender
	}
	if m.Cfg.Mode != ModePerevodnoy {
		return ErrNoTransfer
	}
	if len(m.Table) == 0 {
		return ErrTableEmpty
	}
	if !seat.hasCard(card) {
		return ErrCardNotInHand
	}
	if !m.canTransferWith(card) {
		return ErrNoTransfer
	}
	return m.transferLocked(seat, card)
}

// canTransferWith: все карты на столе одного ранга с переводимой
func (m *Match) canTransferWith(card Card) bool {
	if len(m.Table) == 0 {
		return false
	}
	for _, t := range m.Table {
		if t.Rank != card.Rank {
			return false
		}
	}
	return true
}

func (m *Match) transferLocked(seat *Seat, card Card) error {
	defIdx := m.orderIndex(seat.ID)
	total := len(m.PlayerOrder)

	var next *Seat
	for i := 1; i < total; i++ {
		cand := m.Players[m.PlayerOrder[(defIdx+i)%total]]
		if cand.ID == m.AttackerID && total > 2 {
			continue
		}
		if len(cand.Hand) > 0 {
			next = cand
			break
		}
	}
	if next == nil {
		return ErrNoTransfer
	}
	// принимающий должен суметь ответить на увеличившийся стол
	if len(next.Hand) < len(m.Table)+1 {
		return ErrTransferTooBig
	}

	seat.removeCard(card)
	m.Table = append(m.Table, card)

	m.AttackerID = seat.ID
	m.DefenderID = next.ID
	m.Turn = next.ID
	m.Phase = PhaseAwaitingDefense
	m.appendLog("%s переводит %s на %s", seat.Name, card.String(), next.Name)
	return nil
}

// Take — защитник забирает весь стол себе. Руки добираются, ротация
// проходит мимо забравшего
func (m *Match) Take(seatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seat, err := m.checkActive(seatID)
	if err != nil {
		return err
	}
	if seatID != m.DefenderID {
		return ErrNotDefender
	}
	if len(m.Table) == 0 {
		return ErrTableEmpty
	}

	m.Phase = PhaseResolving
	seat.Hand = append(seat.Hand, m.Table...)
	seat.CardsTaken += len(m.Table)
	m.Table = nil
	m.appendLog("%s забирает карты", seat.Name)

	defIdx := m.orderIndex(seatID)
	attIdx := m.orderIndex(m.AttackerID)
	if attIdx < 0 {
		attIdx = defIdx
	}
	m.refill(attIdx)

	if m.checkGameOver() {
		return nil
	}
	m.updateTurn(NextPlayerIndex(defIdx, len(m.PlayerOrder)))
	return nil
}

// Pass закрывает полностью отбитый бой: стол уходит в сброс, защитнику
// засчитывается успешная защита, ротация переходит к игроку после него
func (m *Match) Pass(seatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.checkActive(seatID)
	if err != nil {
		return err
	}
	if seatID != m.AttackerID {
		return ErrNotYourTurn
	}
	if len(m.Table) == 0 {
		return ErrTableEmpty
	}
	if len(m.Table)%2 != 0 {
		return ErrBoutOpen
	}

	m.Phase = PhaseResolving
	beaten := len(m.Table) / 2
	if defender, ok := m.Players[m.DefenderID]; ok {
		defender.Defenses++
		defender.CardsBeaten += beaten
	}
	m.Discard = append(m.Discard, m.Table...)
	m.Table = nil
	m.appendLog("бой отбит, %d карт в сброс", beaten*2)

	defIdx := m.orderIndex(m.DefenderID)
	attIdx := m.orderIndex(seatID)
	if defIdx < 0 {
		defIdx = attIdx
	}
	m.refill(attIdx)

	if m.checkGameOver() {
		return nil
	}
	m.updateTurn(NextPlayerIndex(defIdx, len(m.PlayerOrder)))
	return nil
}

// EjectSeat исключает место по страйкам или таймауту дисконнекта.
// Открытый бой с участием исключённого уходит в сброс, ротация выводится
// заново. Возвращает true, если матч на этом закончился
func (m *Match) EjectSeat(id int64, reason string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	seat, ok := m.Players[id]
	if !ok {
		return m.Winner != nil
	}

	wasParty := id == m.AttackerID || id == m.DefenderID
	name := seat.Name
	m.removeSeatLocked(id)
	m.appendLog("%s исключён: %s", name, reason)

	if m.Status != StatusInProgress || m.Winner != nil {
		return m.Winner != nil
	}

	if len(m.PlayerOrder) < 2 {
		// осталось меньше двух мест — исключённый записывается дураком
		loser := id
		w := &Winner{Loser: &loser, Reason: ReasonForfeit}
		for _, pid := range m.PlayerOrder {
			w.Winners = append(w.Winners, pid)
		}
		m.finishLocked(w)
		return true
	}

	if wasParty && len(m.Table) > 0 {
		m.Discard = append(m.Discard, m.Table...)
		m.Table = nil
	}

	idx := m.orderIndex(m.AttackerID)
	if idx < 0 {
		idx = 0
	}

	// оборванный бой закрывается добором, как после паса: защитник с
	// пустой рукой при непустой колоде не должен застрять без карт
	if len(m.Table) == 0 {
		m.refill(idx)
	}

	if m.checkGameOver() {
		return true
	}

	m.updateTurn(idx)
	return false
}
