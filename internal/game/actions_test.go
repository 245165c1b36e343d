package game

import (
	"fmt"
	"testing"
)

// newTestMatch собирает матч в состоянии in_progress с n местами (id 1..n)
// и детерминированными руками; козырь — черви
func newTestMatch(t *testing.T, n int) *Match {
	t.Helper()

	m := NewMatch("test", 1, Config{DeckSize: 36, MaxPlayers: 6})
	for i := 1; i <= n; i++ {
		if err := m.AddSeat(int64(i), nil, fmt.Sprintf("p%d", i)); err != nil {
			t.Fatalf("не удалось посадить игрока %d: %v", i, err)
		}
	}

	m.Status = StatusInProgress
	m.TrumpSuit = SuitHearts
	m.TrumpCard = &Card{Rank6, SuitHearts}

	// раздаём каждому по паре некозырных карт
	suitsByIdx := []Suit{SuitSpades, SuitClubs, SuitDiamonds, SuitSpades, SuitClubs, SuitDiamonds}
	ranks := []Rank{Rank7, Rank9, RankJ, RankK, Rank8, Rank10}
	for i := 1; i <= n; i++ {
		s := m.Players[int64(i)]
		s.Hand = []Card{
			{ranks[i-1], suitsByIdx[i-1]},
			{RankQ, suitsByIdx[i-1]},
		}
	}

	m.updateTurn(0)
	m.totalCards = m.cardsInPlay()
	return m
}

func setHand(m *Match, id int64, cards ...Card) {
	m.Players[id].Hand = cards
	m.totalCards = m.cardsInPlay()
}

func requireConservation(t *testing.T, m *Match) {
	t.Helper()
	if !m.CheckConservation() {
		t.Fatalf("нарушен инвариант сохранения карт")
	}
}

// Сценарий «простая защита»: атака ♠7, защита ♠10, затем пас —
// стол уходит в сброс, ход возвращается атакующему
func TestScenarioBasicDefend(t *testing.T) {
	m := newTestMatch(t, 2)
	setHand(m, 1, Card{Rank7, SuitSpades}, Card{RankK, SuitClubs})
	setHand(m, 2, Card{Rank10, SuitSpades}, Card{Rank6, SuitDiamonds})

	if err := m.Attack(1, Card{Rank7, SuitSpades}); err != nil {
		t.Fatalf("атака отклонена: %v", err)
	}
	if m.Turn != 2 || m.Phase != PhaseAwaitingDefense {
		t.Fatalf("после атаки ход должен перейти защитнику")
	}

	if err := m.Defend(2, Card{Rank10, SuitSpades}); err != nil {
		t.Fatalf("защита отклонена: %v", err)
	}
	if m.Turn != 1 || m.Phase != PhaseAwaitingAttack {
		t.Fatalf("после защиты ход должен вернуться атакующему")
	}

	if err := m.Pass(1); err != nil {
		t.Fatalf("пас отклонён: %v", err)
	}
	if len(m.Table) != 0 {
		t.Fatalf("после паса стол должен быть пуст")
	}
	if len(m.Discard) != 2 {
		t.Fatalf("ожидалось 2 карты в сбросе, получено %d", len(m.Discard))
	}
	if m.Players[2].Defenses != 1 || m.Players[2].CardsBeaten != 1 {
		t.Fatalf("защитнику не засчитана успешная защита")
	}
	requireConservation(t, m)
}

// Сценарий «вынужденный взял»: защитнику нечем бить — take переносит стол
// в его руку и двигает ротацию мимо него
func TestScenarioForcedTake(t *testing.T) {
	m := newTestMatch(t, 3)
	setHand(m, 1, Card{RankA, SuitSpades}, Card{Rank7, SuitClubs})
	setHand(m, 2, Card{Rank6, SuitSpades}, Card{Rank6, SuitClubs})
	setHand(m, 3, Card{Rank9, SuitDiamonds}, Card{Rank9, SuitClubs})

	if err := m.Attack(1, Card{RankA, SuitSpades}); err != nil {
		t.Fatalf("атака отклонена: %v", err)
	}
	if err := m.Defend(2, Card{Rank6, SuitSpades}); err == nil {
		t.Fatalf("шестёрка не должна бить туза")
	}
	if err := m.Take(2); err != nil {
		t.Fatalf("взятие отклонено: %v", err)
	}

	if len(m.Players[2].Hand) != 3 {
		t.Fatalf("после взятия у защитника должно быть 3 карты, получено %d", len(m.Players[2].Hand))
	}
	if m.Players[2].CardsTaken != 1 {
		t.Fatalf("статистика взятых карт не обновлена")
	}
	if m.AttackerID != 3 {
		t.Fatalf("ротация должна пройти мимо взявшего: ожидался атакующий 3, получен %d", m.AttackerID)
	}
	requireConservation(t, m)
}

func TestAttackRejections(t *testing.T) {
	m := newTestMatch(t, 2)
	setHand(m, 1, Card{Rank7, SuitSpades}, Card{Rank8, SuitSpades})
	setHand(m, 2, Card{Rank10, SuitSpades}, Card{RankJ, SuitClubs})

	if err := m.Attack(2, Card{Rank10, SuitSpades}); err != ErrNotYourTurn {
		t.Fatalf("чужой ход: ожидалось ErrNotYourTurn, получено %v", err)
	}
	if err := m.Attack(1, Card{RankA, SuitDiamonds}); err != ErrCardNotInHand {
		t.Fatalf("нет карты: ожидалось ErrCardNotInHand, получено %v", err)
	}

	if err := m.Attack(1, Card{Rank7, SuitSpades}); err != nil {
		t.Fatalf("легальная атака отклонена: %v", err)
	}
	if err := m.Defend(2, Card{Rank10, SuitSpades}); err != nil {
		t.Fatalf("защита отклонена: %v", err)
	}

	// подкинуть можно только ранг со стола
	if err := m.Attack(1, Card{Rank8, SuitSpades}); err != ErrWrongRankToss {
		t.Fatalf("ожидалось ErrWrongRankToss, получено %v", err)
	}
	requireConservation(t, m)
}

// Вырожденное состояние без защитника: атака отвергается,
// карта остаётся в руке
func TestAttackRejectedWithoutDefender(t *testing.T) {
	m := newTestMatch(t, 2)
	setHand(m, 1, Card{Rank7, SuitSpades})
	m.DefenderID = 0
	m.Turn = 1

	if err := m.Attack(1, Card{Rank7, SuitSpades}); err != ErrNoDefender {
		t.Fatalf("ожидалось ErrNoDefender, получено %v", err)
	}
	if len(m.Table) != 0 || len(m.Players[1].Hand) != 1 {
		t.Fatalf("отказ не должен двигать карты")
	}
}

func TestTossLimitByDefenderHand(t *testing.T) {
	m := newTestMatch(t, 2)
	setHand(m, 1, Card{Rank7, SuitSpades}, Card{Rank7, SuitClubs}, Card{Rank7, SuitDiamonds})
	// у защитника одна карта — второй подкид невозможен
	setHand(m, 2, Card{Rank8, SuitSpades})

	if err := m.Attack(1, Card{Rank7, SuitSpades}); err != nil {
		t.Fatalf("атака отклонена: %v", err)
	}
	if err := m.Defend(2, Card{Rank8, SuitSpades}); err != nil {
		t.Fatalf("защита отклонена: %v", err)
	}
	if err := m.Attack(1, Card{Rank7, SuitClubs}); err != ErrTossLimit {
		t.Fatalf("ожидалось ErrTossLimit, получено %v", err)
	}
	requireConservation(t, m)
}

func TestTossInByThirdPlayer(t *testing.T) {
	m := newTestMatch(t, 3)
	setHand(m, 1, Card{Rank7, SuitSpades}, Card{RankK, SuitSpades})
	setHand(m, 2, Card{Rank10, SuitSpades}, Card{RankJ, SuitSpades}, Card{RankQ, SuitSpades})
	setHand(m, 3, Card{Rank7, SuitClubs}, Card{Rank6, SuitDiamonds})

	if err := m.Attack(1, Card{Rank7, SuitSpades}); err != nil {
		t.Fatalf("атака отклонена: %v", err)
	}
	// пока бой открыт, подкидывать нельзя
	if err := m.Attack(3, Card{Rank7, SuitClubs}); err != ErrNotYourTurn {
		t.Fatalf("подкид в открытый бой: ожидалось ErrNotYourTurn, получено %v", err)
	}
	if err := m.Defend(2, Card{Rank10, SuitSpades}); err != nil {
		t.Fatalf("защита отклонена: %v", err)
	}
	// бой закрыт — третий игрок подкидывает семёрку
	if err := m.Attack(3, Card{Rank7, SuitClubs}); err != nil {
		t.Fatalf("легальный подкид отклонён: %v", err)
	}
	if m.Turn != 2 {
		t.Fatalf("после подкида ход должен вернуться защитнику")
	}
	requireConservation(t, m)
}

func TestPassRequiresClosedBout(t *testing.T) {
	m := newTestMatch(t, 2)
	setHand(m, 1, Card{Rank7, SuitSpades}, Card{Rank8, SuitClubs})
	setHand(m, 2, Card{Rank10, SuitSpades}, Card{RankJ, SuitClubs})

	if err := m.Pass(1); err != ErrTableEmpty {
		t.Fatalf("пас при пустом столе: ожидалось ErrTableEmpty, получено %v", err)
	}
	if err := m.Attack(1, Card{Rank7, SuitSpades}); err != nil {
		t.Fatalf("атака отклонена: %v", err)
	}
	if err := m.Pass(1); err != ErrBoutOpen {
		t.Fatalf("пас при открытом бое: ожидалось ErrBoutOpen, получено %v", err)
	}
}

func TestRejectedActionDoesNotMutate(t *testing.T) {
	m := newTestMatch(t, 2)
	setHand(m, 1, Card{Rank7, SuitSpades}, Card{Rank8, SuitClubs})
	setHand(m, 2, Card{Rank10, SuitSpades}, Card{RankJ, SuitClubs})

	before := len(m.Log)
	if err := m.Attack(1, Card{RankA, SuitHearts}); err == nil {
		t.Fatalf("ожидался отказ")
	}
	if len(m.Table) != 0 || len(m.Players[1].Hand) != 2 || len(m.Log) != before {
		t.Fatalf("отказ не должен менять состояние и писать в журнал")
	}
}

// Игра окончена: колода пуста, ровно одно место с картами — оно дурак
func TestGameOverSingleLoser(t *testing.T) {
	m := newTestMatch(t, 2)
	m.Deck = nil
	setHand(m, 1, Card{Rank7, SuitSpades})
	setHand(m, 2, Card{Rank10, SuitSpades}, Card{RankJ, SuitClubs}, Card{Rank6, SuitClubs})
	m.updateTurn(0)

	if err := m.Attack(1, Card{Rank7, SuitSpades}); err != nil {
		t.Fatalf("атака отклонена: %v", err)
	}
	if err := m.Take(2); err != nil {
		t.Fatalf("взятие отклонено: %v", err)
	}

	w := m.Result()
	if w == nil {
		t.Fatalf("итог не записан")
	}
	if w.Loser == nil || *w.Loser != 2 {
		t.Fatalf("дураком должен остаться игрок 2")
	}
	if len(w.Winners) != 1 || w.Winners[0] != 1 {
		t.Fatalf("победителем должен быть игрок 1")
	}
	if w.Reason != ReasonNormal {
		t.Fatalf("доигранная партия пишется с причиной normal, получено %q", w.Reason)
	}
	if m.Status != StatusFinished {
		t.Fatalf("матч должен перейти в finished")
	}
}

// Ничья: колода пуста и руки кончились у всех одновременно
func TestGameOverDraw(t *testing.T) {
	m := newTestMatch(t, 2)
	m.Deck = nil
	setHand(m, 1, Card{Rank7, SuitSpades})
	setHand(m, 2, Card{Rank10, SuitSpades})
	m.updateTurn(0)

	if err := m.Attack(1, Card{Rank7, SuitSpades}); err != nil {
		t.Fatalf("атака отклонена: %v", err)
	}
	if err := m.Defend(2, Card{Rank10, SuitSpades}); err != nil {
		t.Fatalf("защита отклонена: %v", err)
	}
	if err := m.Pass(1); err != nil {
		t.Fatalf("пас отклонён: %v", err)
	}

	w := m.Result()
	if w == nil {
		t.Fatalf("итог не записан")
	}
	if w.Loser != nil {
		t.Fatalf("в ничьей дурака нет")
	}
	if len(w.Winners) != 2 {
		t.Fatalf("в ничьей победители — все, получено %d", len(w.Winners))
	}
}

// Колода пуста, но с картами двое — игра продолжается
func TestGameNotOverWithTwoHandsLeft(t *testing.T) {
	m := newTestMatch(t, 3)
	m.Deck = nil
	setHand(m, 1, Card{Rank7, SuitSpades})
	setHand(m, 2, Card{Rank10, SuitSpades}, Card{RankJ, SuitClubs})
	setHand(m, 3, Card{Rank9, SuitDiamonds})
	m.updateTurn(0)

	if err := m.Attack(1, Card{Rank7, SuitSpades}); err != nil {
		t.Fatalf("атака отклонена: %v", err)
	}
	if err := m.Take(2); err != nil {
		t.Fatalf("взятие отклонено: %v", err)
	}

	if m.Result() != nil {
		t.Fatalf("игра не должна закончиться, пока с картами больше одного места")
	}
}

// Добор после боя: сперва атакующий, потом по кругу, до 6 карт,
// пока колода не кончится
func TestRefillOrderAndLimit(t *testing.T) {
	m := newTestMatch(t, 2)
	m.Deck = []Card{
		{RankA, SuitClubs}, {RankK, SuitClubs}, {RankQ, SuitClubs},
		{RankJ, SuitClubs}, {Rank10, SuitClubs}, {Rank9, SuitClubs},
		{Rank8, SuitClubs},
	}
	setHand(m, 1, Card{Rank7, SuitSpades}, Card{Rank6, SuitSpades})
	setHand(m, 2, Card{Rank10, SuitSpades}, Card{RankJ, SuitDiamonds})
	m.updateTurn(0)

	if err := m.Attack(1, Card{Rank7, SuitSpades}); err != nil {
		t.Fatalf("атака отклонена: %v", err)
	}
	if err := m.Defend(2, Card{Rank10, SuitSpades}); err != nil {
		t.Fatalf("защита отклонена: %v", err)
	}
	if err := m.Pass(1); err != nil {
		t.Fatalf("пас отклонён: %v", err)
	}

	// атакующий добирает первым: 1 карта + 5 из колоды = 6
	if len(m.Players[1].Hand) != 6 {
		t.Fatalf("атакующий должен добрать до 6, получено %d", len(m.Players[1].Hand))
	}
	// защитнику достаются оставшиеся 2
	if len(m.Players[2].Hand) != 3 {
		t.Fatalf("защитнику должны достаться остатки колоды, получено %d", len(m.Players[2].Hand))
	}
	if len(m.Deck) != 0 {
		t.Fatalf("колода должна опустеть")
	}
	requireConservation(t, m)
}

func TestTransferPerevodnoy(t *testing.T) {
	m := newTestMatch(t, 3)
	m.Cfg.Mode = ModePerevodnoy
	setHand(m, 1, Card{Rank7, SuitSpades}, Card{RankK, SuitSpades})
	setHand(m, 2, Card{Rank7, SuitClubs}, Card{Rank6, SuitDiamonds})
	setHand(m, 3, Card{Rank9, SuitDiamonds}, Card{Rank9, SuitClubs}, Card{Rank10, SuitClubs})

	if err := m.Attack(1, Card{Rank7, SuitSpades}); err != nil {
		t.Fatalf("атака отклонена: %v", err)
	}
	if err := m.Transfer(2, Card{Rank7, SuitClubs}); err != nil {
		t.Fatalf("перевод отклонён: %v", err)
	}

	if m.DefenderID != 3 {
		t.Fatalf("после перевода защищаться должен игрок 3, получен %d", m.DefenderID)
	}
	if m.AttackerID != 2 {
		t.Fatalf("переведший становится атакующим")
	}
	if m.Turn != 3 {
		t.Fatalf("ход должен перейти новому защитнику")
	}
	if len(m.Table) != 2 {
		t.Fatalf("обе семёрки должны лежать на столе")
	}
	requireConservation(t, m)
}

func TestTransferRejectedWhenNextHandTooSmall(t *testing.T) {
	m := newTestMatch(t, 3)
	m.Cfg.Mode = ModePerevodnoy
	setHand(m, 1, Card{Rank7, SuitSpades}, Card{RankK, SuitSpades})
	setHand(m, 2, Card{Rank7, SuitClubs}, Card{Rank6, SuitDiamonds})
	setHand(m, 3, Card{Rank9, SuitDiamonds}) // одной карты мало на два стола

	if err := m.Attack(1, Card{Rank7, SuitSpades}); err != nil {
		t.Fatalf("атака отклонена: %v", err)
	}
	if err := m.Transfer(2, Card{Rank7, SuitClubs}); err != ErrTransferTooBig {
		t.Fatalf("ожидалось ErrTransferTooBig, получено %v", err)
	}
}

func TestTransferRejectedInPodkidnoy(t *testing.T) {
	m := newTestMatch(t, 2)
	setHand(m, 1, Card{Rank7, SuitSpades}, Card{RankK, SuitSpades})
	setHand(m, 2, Card{Rank7, SuitClubs}, Card{Rank6, SuitDiamonds})

	if err := m.Attack(1, Card{Rank7, SuitSpades}); err != nil {
		t.Fatalf("атака отклонена: %v", err)
	}
	if err := m.Transfer(2, Card{Rank7, SuitClubs}); err != ErrNoTransfer {
		t.Fatalf("ожидалось ErrNoTransfer, получено %v", err)
	}
}

// Инвариант сохранения после длинной последовательности действий
func TestConservationThroughFullBouts(t *testing.T) {
	m := NewMatch("cons", 1, Config{DeckSize: 36, MaxPlayers: 3})
	for i := 1; i <= 3; i++ {
		if err := m.AddSeat(int64(i), nil, fmt.Sprintf("p%d", i)); err != nil {
			t.Fatalf("посадка: %v", err)
		}
	}
	if err := m.Start(); err != nil {
		t.Fatalf("старт: %v", err)
	}
	requireConservation(t, m)

	// гоняем ботов через общий путь действий до конца игры
	for steps := 0; steps < 500 && m.InProgress(); steps++ {
		id, _ := m.TurnHolder()
		if id == 0 {
			break
		}
		m.Players[id].BotLevel = BotMedium
		mv := m.ChooseBotMove(id)
		if mv == nil {
			t.Fatalf("бот не нашёл хода на шаге %d", steps)
		}
		if err := m.Apply(id, mv); err != nil {
			t.Fatalf("ход бота отклонён на шаге %d: %v", steps, err)
		}
		requireConservation(t, m)
	}

	if m.InProgress() {
		t.Fatalf("партия ботов не завершилась за лимит шагов")
	}
}
