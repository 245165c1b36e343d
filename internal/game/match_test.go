package game

import (
	"testing"
	"time"
)

func TestConfigNormalize(t *testing.T) {
	c := Config{DeckSize: 40, MaxPlayers: 9, TurnSeconds: 5, Mode: "x", Bet: -10}
	c.Normalize()
	if c.DeckSize != 36 || c.MaxPlayers != 2 || c.TurnSeconds != 15 || c.Mode != ModePodkidnoy || c.Bet != 0 {
		t.Fatalf("нормализация конфигурации сломана: %+v", c)
	}

	c = Config{TurnSeconds: 500}
	c.Normalize()
	if c.TurnSeconds != 300 {
		t.Fatalf("потолок длительности хода 300с, получено %d", c.TurnSeconds)
	}

	c = Config{TurnSeconds: 0}
	c.Normalize()
	if c.TurnSeconds != 0 {
		t.Fatalf("0 означает ход без лимита и не должен трогаться")
	}
}

func TestStartDealsHandsAndTrump(t *testing.T) {
	m := NewMatch("m1", 1, Config{DeckSize: 36, MaxPlayers: 4})
	for i := 1; i <= 3; i++ {
		if err := m.AddSeat(int64(i), nil, "p"); err != nil {
			t.Fatalf("посадка: %v", err)
		}
	}

	if err := m.Start(); err != nil {
		t.Fatalf("старт: %v", err)
	}

	if m.Status != StatusInProgress {
		t.Fatalf("после старта статус %s", m.Status)
	}
	for i := 1; i <= 3; i++ {
		if len(m.Players[int64(i)].Hand) != HandSize {
			t.Fatalf("игроку %d роздано %d карт", i, len(m.Players[int64(i)].Hand))
		}
	}
	if len(m.Deck) != 36-3*HandSize {
		t.Fatalf("в колоде должно остаться %d карт, осталось %d", 36-3*HandSize, len(m.Deck))
	}
	if m.TrumpCard == nil || m.TrumpSuit == "" {
		t.Fatalf("козырь не определён")
	}
	if m.TrumpCard.Suit != m.TrumpSuit {
		t.Fatalf("козырная масть не совпадает с козырной картой")
	}
	if m.AttackerID == 0 || m.DefenderID == 0 || m.Turn != m.AttackerID {
		t.Fatalf("роли после старта не расставлены")
	}
	if !m.CheckConservation() {
		t.Fatalf("нарушен учёт карт после раздачи")
	}
}

func TestFirstAttackerHoldsLowestTrump(t *testing.T) {
	m := newTestMatch(t, 3)
	setHand(m, 1, Card{RankK, SuitHearts})
	setHand(m, 2, Card{Rank7, SuitHearts})
	setHand(m, 3, Card{RankA, SuitSpades})

	m.updateTurn(m.lowestTrumpIdx())

	if m.AttackerID != 2 {
		t.Fatalf("первым атакует владелец младшего козыря (игрок 2), получен %d", m.AttackerID)
	}
}

func TestStartRequiresTwoSeats(t *testing.T) {
	m := NewMatch("m1", 1, Config{})
	if err := m.AddSeat(1, nil, "p1"); err != nil {
		t.Fatalf("посадка: %v", err)
	}
	if err := m.Start(); err != ErrNotEnoughSeats {
		t.Fatalf("ожидалось ErrNotEnoughSeats, получено %v", err)
	}
}

func TestAddSeatRejections(t *testing.T) {
	m := NewMatch("m1", 1, Config{MaxPlayers: 2})
	if err := m.AddSeat(1, nil, "p1"); err != nil {
		t.Fatalf("посадка: %v", err)
	}
	if err := m.AddSeat(1, nil, "p1"); err != ErrAlreadySeated {
		t.Fatalf("ожидалось ErrAlreadySeated, получено %v", err)
	}
	if err := m.AddSeat(2, nil, "p2"); err != nil {
		t.Fatalf("посадка: %v", err)
	}
	if err := m.AddSeat(3, nil, "p3"); err != ErrMatchFull {
		t.Fatalf("ожидалось ErrMatchFull, получено %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("старт: %v", err)
	}
	if err := m.AddSeat(4, nil, "p4"); err != ErrMatchStarted {
		t.Fatalf("ожидалось ErrMatchStarted, получено %v", err)
	}
}

func TestRemoveSeatPreStartHostHandoff(t *testing.T) {
	m := NewMatch("m1", 1, Config{MaxPlayers: 4})
	m.AddSeat(1, nil, "host")
	m.AddSeat(2, nil, "p2")

	if !m.RemoveSeat(1) {
		t.Fatalf("удаление места не сработало")
	}
	if m.HostID != 2 {
		t.Fatalf("хост должен перейти к оставшемуся игроку, получен %d", m.HostID)
	}
	if len(m.PlayerOrder) != 1 {
		t.Fatalf("playerOrder не отфильтрован")
	}
}

// АФК-исключение: после второго страйка место вылетает; остался один —
// матч заканчивается, исключённый записан дураком
func TestEjectEndsShortMatch(t *testing.T) {
	m := newTestMatch(t, 2)

	if n := m.AddStrike(1); n != 1 {
		t.Fatalf("первый страйк: %d", n)
	}
	if n := m.AddStrike(1); n != MaxStrikes {
		t.Fatalf("второй страйк: %d", n)
	}

	over := m.EjectSeat(1, "афк")
	if !over {
		t.Fatalf("матч из двух мест должен закончиться после исключения")
	}
	w := m.Result()
	if w == nil || w.Loser == nil || *w.Loser != 1 {
		t.Fatalf("исключённый должен быть записан дураком: %+v", w)
	}
	if len(w.Winners) != 1 || w.Winners[0] != 2 {
		t.Fatalf("оставшийся должен победить: %+v", w)
	}
	if w.Reason != ReasonForfeit {
		t.Fatalf("причина должна записываться машинным кодом, получено %q", w.Reason)
	}
}

// Исключение атакующего посреди боя: стол уходит в сброс, руки добираются
// из колоды, роли выводятся заново на живых игроков
func TestEjectMidBoutRefillsHands(t *testing.T) {
	m := newTestMatch(t, 3)
	m.Deck = []Card{{RankA, SuitClubs}, {RankK, SuitClubs}, {Rank6, SuitHearts}}
	setHand(m, 1, Card{Rank7, SuitSpades}, Card{Rank8, SuitSpades})
	setHand(m, 2, Card{Rank10, SuitSpades})
	setHand(m, 3, Card{Rank9, SuitDiamonds}, Card{Rank9, SuitClubs})
	m.updateTurn(0)

	if err := m.Attack(1, Card{Rank7, SuitSpades}); err != nil {
		t.Fatalf("атака отклонена: %v", err)
	}
	if err := m.Defend(2, Card{Rank10, SuitSpades}); err != nil {
		t.Fatalf("защита отклонена: %v", err)
	}

	// защитник остался без карт при непустой колоде — и тут атакующий вылетает
	if over := m.EjectSeat(1, "афк"); over {
		t.Fatalf("матч из трёх мест должен продолжиться")
	}

	if len(m.Players[2].Hand) == 0 {
		t.Fatalf("рука защитника должна добраться из колоды")
	}
	if m.DefenderID == 0 {
		t.Fatalf("после исключения защитник должен быть найден")
	}
	if m.AttackerID == 1 || m.DefenderID == 1 {
		t.Fatalf("исключённый не может оставаться в ролях")
	}
	if len(m.Departed) != 1 || len(m.Departed[0].Hand) != 1 {
		t.Fatalf("выбывший должен сохранить руку на момент выбытия для итога")
	}
	requireConservation(t, m)
}

func TestEjectKeepsMatchWithThreeSeats(t *testing.T) {
	m := newTestMatch(t, 3)
	m.Deck = []Card{{RankA, SuitClubs}} // колода непуста, game-over не сработает
	m.totalCards = m.cardsInPlay()

	over := m.EjectSeat(2, "афк")
	if over {
		t.Fatalf("матч из трёх мест должен продолжиться")
	}
	if m.IsSeated(2) {
		t.Fatalf("место не удалено")
	}
	if m.AttackerID == 2 || m.DefenderID == 2 {
		t.Fatalf("роли не перевыведены после исключения")
	}
	if !m.CheckConservation() {
		t.Fatalf("карты исключённого потеряны из учёта")
	}
}

func TestWinnerWriteOnce(t *testing.T) {
	m := newTestMatch(t, 2)
	loser := int64(1)
	if !m.ForceFinish(&Winner{Winners: []int64{2}, Loser: &loser}) {
		t.Fatalf("первый итог должен записаться")
	}
	if m.ForceFinish(&Winner{Winners: []int64{1}}) {
		t.Fatalf("итог должен писаться не более одного раза")
	}
	w := m.Result()
	if w.Loser == nil || *w.Loser != 1 {
		t.Fatalf("итог перезаписан")
	}

	// после записи итога действия отвергаются
	if err := m.Attack(1, Card{Rank7, SuitSpades}); err != ErrMatchNotActive {
		t.Fatalf("после итога ожидалось ErrMatchNotActive, получено %v", err)
	}
}

func TestSettlementGuard(t *testing.T) {
	m := newTestMatch(t, 2)
	m.ForceFinish(&Winner{Winners: []int64{1, 2}, Reason: "draw"})

	if !m.BeginSettlement() {
		t.Fatalf("первый захват сеттлмента должен пройти")
	}
	if m.BeginSettlement() {
		t.Fatalf("повторный захват при идущем сеттлменте должен быть отвергнут")
	}

	// сбой: флаг снимается, повтор возможен
	m.AbortSettlement()
	if !m.BeginSettlement() {
		t.Fatalf("после сбоя повторная попытка должна быть разрешена")
	}

	m.FinishSettlement()
	if m.BeginSettlement() {
		t.Fatalf("после успешного сеттлмента повтор запрещён")
	}
	if !m.Settled() {
		t.Fatalf("матч должен числиться рассчитанным")
	}
}

func TestRematchFlow(t *testing.T) {
	m := newTestMatch(t, 2)
	if _, err := m.VoteRematch(1); err != ErrMatchNotFinished {
		t.Fatalf("реванш до конца игры: ожидалось ErrMatchNotFinished, получено %v", err)
	}

	m.ForceFinish(&Winner{Winners: []int64{1, 2}, Reason: "draw"})

	all, err := m.VoteRematch(1)
	if err != nil || all {
		t.Fatalf("один голос не должен запускать реванш: %v %v", all, err)
	}
	all, err = m.VoteRematch(2)
	if err != nil || !all {
		t.Fatalf("все проголосовали — реванш должен запуститься: %v %v", all, err)
	}

	m.Bank = 100 // выплачен сеттлментом первой партии
	m.ResetForRematch("test-rematch")
	if m.Status != StatusWaiting || m.Winner != nil || len(m.RematchVotes) != 0 {
		t.Fatalf("матч не сброшен к ожиданию")
	}
	if m.ID != "test-rematch" {
		t.Fatalf("реванш должен получить новый идентификатор, получен %s", m.ID)
	}
	if m.Bank != 0 {
		t.Fatalf("банк прошлой партии не должен переезжать в реванш: %d", m.Bank)
	}
}

func TestSnapshotRedaction(t *testing.T) {
	m := newTestMatch(t, 2)
	setHand(m, 1, Card{Rank7, SuitSpades}, Card{Rank8, SuitSpades})
	setHand(m, 2, Card{Rank10, SuitSpades})

	s := m.Snapshot(1, false)
	for _, pv := range s.Players {
		switch pv.ID {
		case 1:
			if len(pv.Cards) != 2 {
				t.Fatalf("своя рука должна быть видна целиком")
			}
		case 2:
			if pv.Cards != nil {
				t.Fatalf("чужая рука должна быть скрыта")
			}
			if pv.HandCount != 1 {
				t.Fatalf("счётчик чужих карт обязателен")
			}
		}
	}

	// наблюдатель видит все руки
	spect := m.Snapshot(0, true)
	for _, pv := range spect.Players {
		if len(pv.Cards) != pv.HandCount {
			t.Fatalf("наблюдателю руки не открыты")
		}
	}
}

func TestSnapshotMetaActions(t *testing.T) {
	m := newTestMatch(t, 2)
	setHand(m, 1, Card{Rank7, SuitSpades}, Card{Rank8, SuitSpades})
	setHand(m, 2, Card{Rank10, SuitSpades}, Card{RankJ, SuitClubs})

	if err := m.Attack(1, Card{Rank7, SuitSpades}); err != nil {
		t.Fatalf("атака отклонена: %v", err)
	}

	sDef := m.Snapshot(2, false)
	if !sDef.CanTake || !sDef.CanDefend {
		t.Fatalf("защитник должен видеть take/defend")
	}
	if sDef.CanPass {
		t.Fatalf("пас защитнику недоступен")
	}

	sAtt := m.Snapshot(1, false)
	if sAtt.CanPass {
		t.Fatalf("пас при открытом бое недоступен")
	}

	if err := m.Defend(2, Card{Rank10, SuitSpades}); err != nil {
		t.Fatalf("защита отклонена: %v", err)
	}
	sAtt = m.Snapshot(1, false)
	if !sAtt.CanPass {
		t.Fatalf("после отбитого боя атакующему доступен пас")
	}
}

func TestSetConnectedAndDeadline(t *testing.T) {
	m := newTestMatch(t, 2)
	deadline := time.Now().Add(60 * time.Second)
	if !m.SetConnected(1, false, deadline) {
		t.Fatalf("место существует, флаг должен обновиться")
	}
	if m.Players[1].Connected {
		t.Fatalf("флаг подключения не снят")
	}
	if !m.SetConnected(1, true, time.Time{}) {
		t.Fatalf("реконнект должен пройти")
	}
	if !m.Players[1].Connected || !m.Players[1].DisconnectDeadline.IsZero() {
		t.Fatalf("реконнект должен сбросить дедлайн")
	}
	if m.SetConnected(99, false, deadline) {
		t.Fatalf("несуществующее место должно вернуть false")
	}
}
