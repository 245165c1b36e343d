package game

import "testing"

func TestCanBeat(t *testing.T) {
	trump := SuitHearts

	cases := []struct {
		name    string
		attack  *Card
		defend  *Card
		want    bool
	}{
		{"та же масть, старше", &Card{Rank7, SuitSpades}, &Card{Rank10, SuitSpades}, true},
		{"та же масть, младше", &Card{Rank10, SuitSpades}, &Card{Rank7, SuitSpades}, false},
		{"та же масть, равные", &Card{Rank7, SuitSpades}, &Card{Rank7, SuitSpades}, false},
		{"козырь бьёт некозыря любого достоинства", &Card{RankA, SuitSpades}, &Card{Rank6, SuitHearts}, true},
		{"некозырь не бьёт козыря", &Card{Rank6, SuitHearts}, &Card{RankA, SuitSpades}, false},
		{"старший козырь бьёт младший", &Card{Rank8, SuitHearts}, &Card{RankQ, SuitHearts}, true},
		{"младший козырь не бьёт старший", &Card{RankQ, SuitHearts}, &Card{Rank8, SuitHearts}, false},
		{"разные некозырные масти не бьются", &Card{Rank6, SuitSpades}, &Card{RankA, SuitClubs}, false},
		{"нет карты атаки", nil, &Card{RankA, SuitHearts}, false},
		{"нет карты защиты", &Card{Rank6, SuitSpades}, nil, false},
		{"нет обеих карт", nil, nil, false},
	}

	for _, tc := range cases {
		if got := CanBeat(tc.attack, tc.defend, trump); got != tc.want {
			t.Errorf("%s: ожидалось %v, получено %v", tc.name, tc.want, got)
		}
	}
}

func TestNextPlayerIndex(t *testing.T) {
	if got := NextPlayerIndex(3, 4); got != 0 {
		t.Fatalf("ожидался переход 3->0, получено %d", got)
	}
	if got := NextPlayerIndex(0, 4); got != 1 {
		t.Fatalf("ожидалось 1, получено %d", got)
	}
	if got := NextPlayerIndex(5, 0); got != 0 {
		t.Fatalf("при пустой ротации ожидался 0, получено %d", got)
	}
}

func TestUpdateTurnSkipsEmptyHands(t *testing.T) {
	m := newTestMatch(t, 3)
	m.Players[2].Hand = nil // у второго пустая рука

	m.updateTurn(1)

	if m.AttackerID != 3 {
		t.Fatalf("ожидался атакующий 3 (пустая рука пропущена), получен %d", m.AttackerID)
	}
	if m.DefenderID != 1 {
		t.Fatalf("ожидался защитник 1, получен %d", m.DefenderID)
	}
	if m.Turn != m.AttackerID {
		t.Fatalf("turn должен указывать на атакующего")
	}
}

func TestUpdateTurnDegenerateNoDefender(t *testing.T) {
	m := newTestMatch(t, 2)
	m.Players[2].Hand = nil

	m.updateTurn(0)

	if m.AttackerID != 1 {
		t.Fatalf("ожидался атакующий 1, получен %d", m.AttackerID)
	}
	if m.DefenderID != 0 {
		t.Fatalf("в вырожденном случае защитник должен остаться нулевым, получен %d", m.DefenderID)
	}
}

func TestUpdateTurnAllEmptyLeavesState(t *testing.T) {
	m := newTestMatch(t, 2)
	m.Players[1].Hand = nil
	m.Players[2].Hand = nil
	m.AttackerID = 7
	m.DefenderID = 8

	m.updateTurn(0)

	if m.AttackerID != 7 || m.DefenderID != 8 {
		t.Fatalf("при пустых руках у всех состояние не должно меняться")
	}
}
