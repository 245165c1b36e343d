package game

import "testing"

func TestBotDefendsWithCheapestCard(t *testing.T) {
	m := newTestMatch(t, 2)
	setHand(m, 1, Card{Rank7, SuitSpades}, Card{Rank8, SuitClubs})
	setHand(m, 2, Card{RankA, SuitSpades}, Card{Rank9, SuitSpades}, Card{Rank6, SuitHearts})
	m.Players[2].IsBot = true
	m.Players[2].BotLevel = BotEasy

	if err := m.Attack(1, Card{Rank7, SuitSpades}); err != nil {
		t.Fatalf("атака отклонена: %v", err)
	}

	mv := m.ChooseBotMove(2)
	if mv == nil || mv.Type != ActionDefend {
		t.Fatalf("бот должен защищаться, получено %+v", mv)
	}
	// дешевле всех — ♠9, не туз и не козырь
	if *mv.Card != (Card{Rank9, SuitSpades}) {
		t.Fatalf("бот должен бить самой дешёвой картой, выбрал %s", mv.Card.String())
	}
}

func TestBotTakesWhenCannotBeat(t *testing.T) {
	m := newTestMatch(t, 2)
	setHand(m, 1, Card{RankA, SuitSpades}, Card{Rank8, SuitClubs})
	setHand(m, 2, Card{Rank6, SuitSpades}, Card{Rank7, SuitClubs})
	m.Players[2].IsBot = true
	m.Players[2].BotLevel = BotMedium

	if err := m.Attack(1, Card{RankA, SuitSpades}); err != nil {
		t.Fatalf("атака отклонена: %v", err)
	}

	mv := m.ChooseBotMove(2)
	if mv == nil || mv.Type != ActionTake {
		t.Fatalf("боту нечем бить — он должен забрать, получено %+v", mv)
	}
}

func TestBotOpensWithLowestNonTrump(t *testing.T) {
	m := newTestMatch(t, 2)
	setHand(m, 1, Card{Rank6, SuitHearts}, Card{RankJ, SuitSpades}, Card{Rank8, SuitClubs})
	setHand(m, 2, Card{Rank10, SuitSpades}, Card{RankJ, SuitClubs})
	m.Players[1].IsBot = true
	m.Players[1].BotLevel = BotMedium
	m.updateTurn(0)

	mv := m.ChooseBotMove(1)
	if mv == nil || mv.Type != ActionAttack {
		t.Fatalf("бот должен атаковать, получено %+v", mv)
	}
	// козырная шестёрка дороже некозырной восьмёрки
	if *mv.Card != (Card{Rank8, SuitClubs}) {
		t.Fatalf("бот должен ходить дешёвой некозырной картой, выбрал %s", mv.Card.String())
	}
}

func TestHardBotPrefersPairedRank(t *testing.T) {
	m := newTestMatch(t, 2)
	setHand(m, 1, Card{Rank7, SuitSpades}, Card{RankJ, SuitSpades}, Card{RankJ, SuitClubs})
	setHand(m, 2, Card{Rank10, SuitSpades}, Card{RankQ, SuitClubs}, Card{RankA, SuitDiamonds})
	m.Players[1].IsBot = true
	m.Players[1].BotLevel = BotHard
	m.updateTurn(0)

	mv := m.ChooseBotMove(1)
	if mv == nil || mv.Type != ActionAttack {
		t.Fatalf("бот должен атаковать, получено %+v", mv)
	}
	if mv.Card.Rank != RankJ {
		t.Fatalf("сложный бот должен предпочесть парный ранг, выбрал %s", mv.Card.String())
	}
}

func TestBotPassesWhenNothingToToss(t *testing.T) {
	m := newTestMatch(t, 2)
	setHand(m, 1, Card{Rank7, SuitSpades}, Card{RankK, SuitClubs})
	setHand(m, 2, Card{Rank10, SuitSpades}, Card{RankJ, SuitClubs})
	m.Players[1].IsBot = true
	m.Players[1].BotLevel = BotMedium

	if err := m.Attack(1, Card{Rank7, SuitSpades}); err != nil {
		t.Fatalf("атака отклонена: %v", err)
	}
	if err := m.Defend(2, Card{Rank10, SuitSpades}); err != nil {
		t.Fatalf("защита отклонена: %v", err)
	}

	mv := m.ChooseBotMove(1)
	if mv == nil || mv.Type != ActionPass {
		t.Fatalf("подкинуть нечего — бот должен пасовать, получено %+v", mv)
	}
}

func TestTimeoutMoveDefenderTakes(t *testing.T) {
	m := newTestMatch(t, 2)
	setHand(m, 1, Card{Rank7, SuitSpades}, Card{RankK, SuitClubs})
	setHand(m, 2, Card{Rank6, SuitClubs}, Card{RankJ, SuitClubs})

	if err := m.Attack(1, Card{Rank7, SuitSpades}); err != nil {
		t.Fatalf("атака отклонена: %v", err)
	}

	mv := m.TimeoutMove(2)
	if mv == nil || mv.Type != ActionTake {
		t.Fatalf("просрочивший защитник обязан забрать, получено %+v", mv)
	}
	if err := m.Apply(2, mv); err != nil {
		t.Fatalf("синтетический ход должен быть легален: %v", err)
	}
}

func TestTimeoutMoveAttackerPassesOrLeads(t *testing.T) {
	m := newTestMatch(t, 2)
	setHand(m, 1, Card{Rank6, SuitHearts}, Card{Rank9, SuitClubs})
	setHand(m, 2, Card{Rank10, SuitClubs}, Card{RankJ, SuitClubs})

	// пустой стол: автоход — самая дешёвая некозырная карта
	mv := m.TimeoutMove(1)
	if mv == nil || mv.Type != ActionAttack {
		t.Fatalf("при пустом столе ожидалась автоатака, получено %+v", mv)
	}
	if *mv.Card != (Card{Rank9, SuitClubs}) {
		t.Fatalf("автоатака должна быть дешёвой некозырной картой, выбрано %s", mv.Card.String())
	}
	if err := m.Apply(1, mv); err != nil {
		t.Fatalf("автоатака отклонена: %v", err)
	}

	if err := m.Defend(2, Card{Rank10, SuitClubs}); err != nil {
		t.Fatalf("защита отклонена: %v", err)
	}

	// закрытый бой: автоход атакующего — пас
	mv = m.TimeoutMove(1)
	if mv == nil || mv.Type != ActionPass {
		t.Fatalf("при закрытом бое ожидался автопас, получено %+v", mv)
	}
	if err := m.Apply(1, mv); err != nil {
		t.Fatalf("автопас отклонён: %v", err)
	}
}
