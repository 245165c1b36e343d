package game

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	StatusWaiting    = "waiting"
	StatusInProgress = "in_progress"
	StatusFinished   = "finished"
)

// Фаза боя — явный конечный автомат вместо разрозненных проверок полей
type Phase string

const (
	PhaseAwaitingAttack  Phase = "awaiting_attack"
	PhaseAwaitingDefense Phase = "awaiting_defense"
	PhaseResolving       Phase = "resolving"
)

// Режим игры
type Mode string

const (
	ModePodkidnoy  Mode = "podkidnoy"  // классический подкидной
	ModePerevodnoy Mode = "perevodnoy" // с переводом
)

// Уровень сложности бота
type BotLevel string

const (
	BotEasy   BotLevel = "easy"
	BotMedium BotLevel = "medium"
	BotHard   BotLevel = "hard"
)

const (
	HandSize   = 6  // добор до шести карт
	logCap     = 50 // кольцевой буфер событий
	MaxStrikes = 2  // АФК-страйков до исключения
)

// Машинные причины завершения для записи итога; человекочитаемый текст
// остаётся в журнале событий
const (
	ReasonNormal  = "normal"  // партия доиграна до конца
	ReasonForfeit = "forfeit" // игрок выбыл по АФК или дисконнекту
)

var (
	ErrMatchFull      = errors.New("стол заполнен")
	ErrAlreadySeated  = errors.New("игрок уже за столом")
	ErrMatchStarted   = errors.New("игра уже началась")
	ErrNotEnoughSeats = errors.New("недостаточно игроков для старта")
)

// Конфигурация одного матча
type Config struct {
	DeckSize    int   `json:"deck_size"`    // 24/36/52
	MaxPlayers  int   `json:"max_players"`  // 2-6
	TurnSeconds int   `json:"turn_seconds"` // 0 = без лимита, иначе 15-300
	Bet         int64 `json:"bet"`
	Mode        Mode  `json:"mode"`
}

// Normalize приводит конфигурацию к допустимым значениям
func (c *Config) Normalize() {
	if c.DeckSize != 24 && c.DeckSize != 52 {
		c.DeckSize = 36
	}
	if c.MaxPlayers < 2 || c.MaxPlayers > 6 {
		c.MaxPlayers = 2
	}
	if c.TurnSeconds != 0 {
		if c.TurnSeconds < 15 {
			c.TurnSeconds = 15
		}
		if c.TurnSeconds > 300 {
			c.TurnSeconds = 300
		}
	}
	if c.Mode != ModePerevodnoy {
		c.Mode = ModePodkidnoy
	}
	if c.Bet < 0 {
		c.Bet = 0
	}
}

// Seat — место за столом в рамках одного матча
type Seat struct {
	ID        int64  `json:"id"`   // транспортный идентификатор сессии
	AccountID *int64 `json:"-"`    // nil — гость, награды не начисляются
	Name      string `json:"name"`
	Hand      []Card `json:"-"`

	// внутриматчевая статистика
	CardsTaken  int `json:"cards_taken"`
	Defenses    int `json:"defenses"`
	CardsBeaten int `json:"cards_beaten"`

	AFKStrikes int  `json:"afk_strikes"`
	Connected  bool `json:"connected"`
	// дедлайн грейс-периода; нулевое время — таймер не идёт
	DisconnectDeadline time.Time `json:"-"`

	IsBot    bool     `json:"is_bot"`
	BotLevel BotLevel `json:"-"`
}

func (s *Seat) hasCard(c Card) bool {
	for _, h := range s.Hand {
		if h == c {
			return true
		}
	}
	return false
}

func (s *Seat) removeCard(c Card) bool {
	for i, h := range s.Hand {
		if h == c {
			s.Hand = append(s.Hand[:i], s.Hand[i+1:]...)
			return true
		}
	}
	return false
}

// Итог матча — записывается ровно один раз
type Winner struct {
	Winners []int64 `json:"winners"`
	Loser   *int64  `json:"loser,omitempty"`
	Reason  string  `json:"reason,omitempty"`
}

// Match — агрегат состояния одной партии. Все мутации идут через методы,
// каждый метод сам берёт мьютекс: один матч — одна граница взаимного
// исключения, между матчами общих данных нет
type Match struct {
	mu sync.Mutex

	ID     string
	Status string
	Cfg    Config
	Phase  Phase

	HostID      int64
	PlayerOrder []int64 // порядок хода; фильтруется при удалении мест
	Players     map[int64]*Seat
	Departed    []*Seat // выбывшие по АФК/дисконнекту, нужны сеттлменту

	Deck    []Card
	Table   []Card // атаки и защиты вперемешку в порядке выкладывания
	Discard []Card

	TrumpCard *Card
	TrumpSuit Suit

	AttackerID int64
	DefenderID int64 // 0 — защитник не найден (вырожденное состояние)
	Turn       int64

	Winner       *Winner
	Bank         int64
	RematchVotes map[int64]bool

	Log []string

	// защита от повторного сеттлмента
	settling bool
	settled  bool

	StartedAt  time.Time
	FinishedAt time.Time

	TurnDeadline time.Time // для снапшотов и планировщика

	totalCards int // инвариант сохранения карт
}

func NewMatch(id string, hostID int64, cfg Config) *Match {
	cfg.Normalize()
	return &Match{
		ID:           id,
		Status:       StatusWaiting,
		Cfg:          cfg,
		HostID:       hostID,
		Players:      make(map[int64]*Seat),
		RematchVotes: make(map[int64]bool),
	}
}

// appendLog пишет событие в кольцевой буфер (вызывается под мьютексом)
func (m *Match) appendLog(format string, args ...any) {
	m.Log = append(m.Log, fmt.Sprintf(format, args...))
	if len(m.Log) > logCap {
		m.Log = m.Log[len(m.Log)-logCap:]
	}
}

// AddSeat сажает игрока за стол до старта
func (m *Match) AddSeat(id int64, accountID *int64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Status != StatusWaiting {
		return ErrMatchStarted
	}
	if _, ok := m.Players[id]; ok {
		return ErrAlreadySeated
	}
	if len(m.PlayerOrder) >= m.Cfg.MaxPlayers {
		return ErrMatchFull
	}

	m.Players[id] = &Seat{ID: id, AccountID: accountID, Name: name, Connected: true}
	m.PlayerOrder = append(m.PlayerOrder, id)
	m.Bank += m.Cfg.Bet
	m.appendLog("%s сел за стол", name)
	return nil
}

// AddBot добавляет бота на свободное место
func (m *Match) AddBot(id int64, name string, level BotLevel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Status != StatusWaiting {
		return ErrMatchStarted
	}
	if len(m.PlayerOrder) >= m.Cfg.MaxPlayers {
		return ErrMatchFull
	}
	if level != BotEasy && level != BotHard {
		level = BotMedium
	}

	m.Players[id] = &Seat{ID: id, Name: name, Connected: true, IsBot: true, BotLevel: level}
	m.PlayerOrder = append(m.PlayerOrder, id)
	m.appendLog("бот %s сел за стол", name)
	return nil
}

// RemoveSeat убирает место из матча: из players и из playerOrder.
// Возвращает false, если игрока за столом не было
func (m *Match) RemoveSeat(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeSeatLocked(id)
}

func (m *Match) removeSeatLocked(id int64) bool {
	seat, ok := m.Players[id]
	if !ok {
		return false
	}

	// слепок для сеттлмента снимается до сброса руки: в итог попадает
	// размер руки на момент выбытия
	if m.Status == StatusInProgress {
		departed := *seat
		departed.Hand = append([]Card(nil), seat.Hand...)
		m.Departed = append(m.Departed, &departed)
	}

	// карты выбывшего уходят в сброс, чтобы не нарушать учёт
	if len(seat.Hand) > 0 {
		m.Discard = append(m.Discard, seat.Hand...)
		seat.Hand = nil
	}

	delete(m.Players, id)
	delete(m.RematchVotes, id)
	for i, pid := range m.PlayerOrder {
		if pid == id {
			m.PlayerOrder = append(m.PlayerOrder[:i], m.PlayerOrder[i+1:]...)
			break
		}
	}

	// хост ушёл до старта — назначаем нового из оставшихся
	if m.HostID == id && len(m.PlayerOrder) > 0 {
		m.HostID = m.PlayerOrder[0]
	}

	m.appendLog("%s покинул стол", seat.Name)
	return true
}

// Start раздаёт карты и запускает партию. Первым атакует владелец
// младшего козыря; если козырей нет ни у кого — первый в ротации
func (m *Match) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Status != StatusWaiting {
		return ErrMatchStarted
	}
	if len(m.PlayerOrder) < 2 {
		return ErrNotEnoughSeats
	}

	m.Deck = NewDeck(m.Cfg.DeckSize)
	m.totalCards = len(m.Deck)
	m.Table = nil
	m.Discard = nil
	m.RematchVotes = make(map[int64]bool)

	// козырь — последняя карта перетасованной колоды
	trump := m.Deck[len(m.Deck)-1]
	m.TrumpCard = &trump
	m.TrumpSuit = trump.Suit

	for _, id := range m.PlayerOrder {
		seat := m.Players[id]
		seat.Hand = append([]Card(nil), m.Deck[:HandSize]...)
		m.Deck = m.Deck[HandSize:]
		seat.CardsTaken = 0
		seat.Defenses = 0
		seat.CardsBeaten = 0
		seat.AFKStrikes = 0
	}

	m.Status = StatusInProgress
	m.StartedAt = time.Now()
	m.updateTurn(m.lowestTrumpIdx())
	m.appendLog("игра началась, козырь %s", trump.String())
	return nil
}

// lowestTrumpIdx находит место с самым младшим козырём на руках —
// оно атакует первым; без козырей у всех атакует первое место
func (m *Match) lowestTrumpIdx() int {
	firstIdx := 0
	lowest := 0
	for i, id := range m.PlayerOrder {
		for _, c := range m.Players[id].Hand {
			if c.Suit != m.TrumpSuit {
				continue
			}
			if lowest == 0 || c.Value() < lowest {
				lowest = c.Value()
				firstIdx = i
			}
		}
	}
	return firstIdx
}

// orderIndex возвращает позицию места в ротации, -1 если его нет
func (m *Match) orderIndex(id int64) int {
	for i, pid := range m.PlayerOrder {
		if pid == id {
			return i
		}
	}
	return -1
}

// refill добирает руки до шести карт начиная с места fromIdx и далее по
// кругу; порядок важен — при почти пустой колоде он решает, кому достанутся
// последние карты
func (m *Match) refill(fromIdx int) {
	total := len(m.PlayerOrder)
	for i := 0; i < total && len(m.Deck) > 0; i++ {
		seat := m.Players[m.PlayerOrder[(fromIdx+i)%total]]
		for len(seat.Hand) < HandSize && len(m.Deck) > 0 {
			seat.Hand = append(seat.Hand, m.Deck[0])
			m.Deck = m.Deck[1:]
		}
	}
}

// checkGameOver проверяет терминальное условие после добора: колода пуста
// и с картами осталось не больше одного места. Единственный с картами —
// дурак, остальные победители; ноль мест с картами — ничья.
// Установка Winner — единственные ворота в сеттлмент
func (m *Match) checkGameOver() bool {
	if m.Winner != nil {
		return true
	}
	if len(m.Deck) > 0 {
		return false
	}

	var withCards []int64
	var winners []int64
	for _, id := range m.PlayerOrder {
		if len(m.Players[id].Hand) > 0 {
			withCards = append(withCards, id)
		} else {
			winners = append(winners, id)
		}
	}

	if len(withCards) > 1 {
		return false
	}

	w := &Winner{Winners: winners, Reason: ReasonNormal}
	if len(withCards) == 1 {
		loser := withCards[0]
		w.Loser = &loser
		m.appendLog("игра окончена, дурак — %s", m.Players[loser].Name)
	} else {
		// ничья: дурака нет, результат участников выводится из этого
		m.appendLog("игра окончена вничью")
	}

	m.finishLocked(w)
	return true
}

// finishLocked фиксирует итог; Winner пишется не более одного раза,
// после него движение карт запрещено
func (m *Match) finishLocked(w *Winner) {
	if m.Winner != nil {
		return
	}
	m.Winner = w
	m.Status = StatusFinished
	m.FinishedAt = time.Now()
	m.TurnDeadline = time.Time{}
}

// ForceFinish завершает матч извне (исключение, дисконнекты).
// Возвращает false, если итог уже записан
func (m *Match) ForceFinish(w *Winner) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Winner != nil {
		return false
	}
	m.finishLocked(w)
	return true
}

// BeginSettlement атомарно захватывает право на сеттлмент.
// Второй вызов для того же матча получает false — гарантия идемпотентности
func (m *Match) BeginSettlement() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Winner == nil || m.settled || m.settling {
		return false
	}
	m.settling = true
	return true
}

// FinishSettlement помечает сеттлмент завершённым
func (m *Match) FinishSettlement() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settling = false
	m.settled = true
}

// AbortSettlement снимает флаг после сбоя, позволяя повторную попытку
// по внешнему триггеру (например, команде админа)
func (m *Match) AbortSettlement() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settling = false
}

// Settled сообщает, применены ли итоги матча
func (m *Match) Settled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settled
}

// VoteRematch регистрирует голос за реванш; true — проголосовали все
func (m *Match) VoteRematch(id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Status != StatusFinished {
		return false, ErrMatchNotFinished
	}
	if _, ok := m.Players[id]; !ok {
		return false, ErrNotSeated
	}

	m.RematchVotes[id] = true
	for _, pid := range m.PlayerOrder {
		if m.Players[pid].IsBot {
			continue
		}
		if !m.RematchVotes[pid] {
			return false, nil
		}
	}
	return true, nil
}

// ResetForRematch возвращает завершённый матч в ожидание с той же
// конфигурацией и составом. Реванш — новая партия: идентификатор свежий
// (итог прошлой уже записан под старым), банк пуст и собирается заново
func (m *Match) ResetForRematch(newID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Status != StatusFinished {
		return
	}

	m.ID = newID
	m.Status = StatusWaiting
	m.Phase = ""
	m.Winner = nil
	m.settled = false
	m.settling = false
	m.Deck = nil
	m.Table = nil
	m.Discard = nil
	m.TrumpCard = nil
	m.TrumpSuit = ""
	m.AttackerID = 0
	m.DefenderID = 0
	m.Turn = 0
	m.Bank = 0
	m.RematchVotes = make(map[int64]bool)
	m.Log = nil
	m.Departed = nil
	m.FinishedAt = time.Time{}
	for _, seat := range m.Players {
		seat.Hand = nil
		seat.AFKStrikes = 0
		seat.CardsTaken = 0
		seat.Defenses = 0
		seat.CardsBeaten = 0
	}
	m.appendLog("реванш: стол готов к новой игре")
}

// AddToBank кладёт заново собранную ставку в банк реванша
func (m *Match) AddToBank(amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Bank += amount
}

// cardsInPlay считает карты во всех зонах (вызывается под мьютексом)
func (m *Match) cardsInPlay() int {
	n := len(m.Deck) + len(m.Table) + len(m.Discard)
	for _, id := range m.PlayerOrder {
		n += len(m.Players[id].Hand)
	}
	return n
}

// CheckConservation сверяет инвариант сохранения карт: сумма рук, колоды,
// стола и сброса равна исходному размеру колоды
func (m *Match) CheckConservation() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Status == StatusWaiting {
		return true
	}
	return m.cardsInPlay() == m.totalCards
}
