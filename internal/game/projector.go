package game

import "time"

// PlayerView — одно место глазами конкретного наблюдателя
type PlayerView struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	HandCount   int      `json:"hand_count"`
	Cards       []Card   `json:"cards,omitempty"` // только своя рука и режим наблюдателя
	IsAttacker  bool     `json:"is_attacker"`
	IsDefender  bool     `json:"is_defender"`
	IsBot       bool     `json:"is_bot"`
	Connected   bool     `json:"connected"`
	AFKStrikes  int      `json:"afk_strikes"`
	CardsTaken  int      `json:"cards_taken"`
	Defenses    int      `json:"defenses"`
	VotedRematch bool    `json:"voted_rematch,omitempty"`
}

// Snapshot — проекция состояния матча для одного наблюдателя.
// Чужие руки урезаны до счётчика карт
type Snapshot struct {
	MatchID   string       `json:"match_id"`
	Status    string       `json:"status"`
	Phase     Phase        `json:"phase,omitempty"`
	Mode      Mode         `json:"mode"`
	HostID    int64        `json:"host_id"`
	You       int64        `json:"you,omitempty"`
	Players   []PlayerView `json:"players"`
	Table     []Card       `json:"table"`
	TrumpCard *Card        `json:"trump_card,omitempty"`
	TrumpSuit Suit         `json:"trump_suit,omitempty"`
	DeckCount int          `json:"deck_count"`
	DiscardCount int       `json:"discard_count"`
	Turn      int64        `json:"turn"`
	AttackerID int64       `json:"attacker_id"`
	DefenderID int64       `json:"defender_id"`
	CanAttack bool         `json:"can_attack"`
	CanDefend bool         `json:"can_defend"`
	CanTake   bool         `json:"can_take"`
	CanPass   bool         `json:"can_pass"`
	Winner    *Winner      `json:"winner,omitempty"`
	Bank      int64        `json:"bank"`
	Bet       int64        `json:"bet"`
	TurnSeconds int        `json:"turn_seconds"`
	Deadline  int64        `json:"deadline,omitempty"` // unix millis
	Log       []string     `json:"log,omitempty"`
}

// Snapshot строит проекцию для наблюдателя. viewerID == 0 вместе с
// spectator=true — админский обзор, все руки открыты
func (m *Match) Snapshot(viewerID int64, spectator bool) *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &Snapshot{
		MatchID:      m.ID,
		Status:       m.Status,
		Phase:        m.Phase,
		Mode:         m.Cfg.Mode,
		HostID:       m.HostID,
		You:          viewerID,
		Table:        append([]Card(nil), m.Table...),
		TrumpCard:    m.TrumpCard,
		TrumpSuit:    m.TrumpSuit,
		DeckCount:    len(m.Deck),
		DiscardCount: len(m.Discard),
		Turn:         m.Turn,
		AttackerID:   m.AttackerID,
		DefenderID:   m.DefenderID,
		Winner:       m.Winner,
		Bank:         m.Bank,
		Bet:          m.Cfg.Bet,
		TurnSeconds:  m.Cfg.TurnSeconds,
		Log:          append([]string(nil), m.Log...),
	}

	if !m.TurnDeadline.IsZero() {
		s.Deadline = m.TurnDeadline.UnixMilli()
	}

	for _, id := range m.PlayerOrder {
		seat := m.Players[id]
		pv := PlayerView{
			ID:           id,
			Name:         seat.Name,
			HandCount:    len(seat.Hand),
			IsAttacker:   id == m.AttackerID,
			IsDefender:   id == m.DefenderID,
			IsBot:        seat.IsBot,
			Connected:    seat.Connected,
			AFKStrikes:   seat.AFKStrikes,
			CardsTaken:   seat.CardsTaken,
			Defenses:     seat.Defenses,
			VotedRematch: m.RematchVotes[id],
		}
		if id == viewerID || spectator {
			pv.Cards = append([]Card(nil), seat.Hand...)
		}
		s.Players = append(s.Players, pv)
	}

	if m.Status == StatusInProgress && m.Winner == nil {
		even := len(m.Table)%2 == 0
		s.CanAttack = viewerID == m.Turn && viewerID != m.DefenderID ||
			(len(m.Table) > 0 && even && viewerID != m.DefenderID && m.orderIndex(viewerID) >= 0)
		s.CanDefend = viewerID == m.DefenderID && !even
		s.CanTake = viewerID == m.DefenderID && len(m.Table) > 0
		s.CanPass = viewerID == m.AttackerID && len(m.Table) > 0 && even
	}

	return s
}

// TurnHolder возвращает, чей сейчас ход и бот ли это
func (m *Match) TurnHolder() (id int64, isBot bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Status != StatusInProgress || m.Winner != nil {
		return 0, false
	}
	seat, ok := m.Players[m.Turn]
	if !ok {
		return 0, false
	}
	return m.Turn, seat.IsBot
}

// InProgress — идёт ли игра и не записан ли итог
func (m *Match) InProgress() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Status == StatusInProgress && m.Winner == nil
}

// Result возвращает записанный итог (nil, пока игра идёт)
func (m *Match) Result() *Winner {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Winner
}

// SetTurnDeadline запоминает дедлайн текущего хода для снапшотов
func (m *Match) SetTurnDeadline(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TurnDeadline = t
}

// AddStrike наращивает АФК-счётчик места и возвращает новое значение
func (m *Match) AddStrike(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	seat, ok := m.Players[id]
	if !ok {
		return 0
	}
	seat.AFKStrikes++
	m.appendLog("%s не успел сходить (%d/%d)", seat.Name, seat.AFKStrikes, MaxStrikes)
	return seat.AFKStrikes
}

// SetConnected меняет флаг подключения места; deadline — дедлайн
// грейс-периода (нулевое время сбрасывает таймер).
// Возвращает false, если места нет
func (m *Match) SetConnected(id int64, connected bool, deadline time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	seat, ok := m.Players[id]
	if !ok {
		return false
	}
	seat.Connected = connected
	seat.DisconnectDeadline = deadline
	if connected {
		m.appendLog("%s снова в игре", seat.Name)
	} else if m.Status == StatusInProgress {
		m.appendLog("%s потерял соединение", seat.Name)
	}
	return true
}

// IsSeated — есть ли такое место в матче
func (m *Match) IsSeated(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Players[id]
	return ok
}

// SeatCount — текущее число мест
func (m *Match) SeatCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.PlayerOrder)
}

// Outcome — слепок завершённого матча для сеттлмента: итог, банк и все
// участники, включая выбывших по ходу партии
type Outcome struct {
	MatchID    string
	Mode       Mode
	DeckSize   int
	Bet        int64
	Bank       int64
	Winner     *Winner
	StartedAt  time.Time
	FinishedAt time.Time
	Seats      []*Seat
}

// Outcome возвращает nil, пока итог матча не записан
func (m *Match) Outcome() *Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Winner == nil {
		return nil
	}

	o := &Outcome{
		MatchID:    m.ID,
		Mode:       m.Cfg.Mode,
		DeckSize:   m.Cfg.DeckSize,
		Bet:        m.Cfg.Bet,
		Bank:       m.Bank,
		Winner:     m.Winner,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
	}
	for _, id := range m.PlayerOrder {
		seatCopy := *m.Players[id]
		o.Seats = append(o.Seats, &seatCopy)
	}
	for _, seat := range m.Departed {
		seatCopy := *seat
		o.Seats = append(o.Seats, &seatCopy)
	}
	return o
}

// Participants возвращает срез данных мест для сеттлмента
func (m *Match) Participants() []*Seat {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Seat, 0, len(m.PlayerOrder))
	for _, id := range m.PlayerOrder {
		seatCopy := *m.Players[id]
		out = append(out, &seatCopy)
	}
	return out
}
