package game

import "testing"

func TestNewDeckSizes(t *testing.T) {
	for _, size := range []int{24, 36, 52} {
		deck := NewDeck(size)
		if len(deck) != size {
			t.Fatalf("размер %d: ожидалось %d карт, получено %d", size, size, len(deck))
		}

		seen := make(map[Card]bool, size)
		for _, c := range deck {
			if seen[c] {
				t.Fatalf("размер %d: дубликат карты %s", size, c.String())
			}
			seen[c] = true
		}
	}
}

func TestNewDeckUnsupportedSizeFallsBackTo36(t *testing.T) {
	deck := NewDeck(48)
	if len(deck) != 36 {
		t.Fatalf("ожидался откат к 36 картам, получено %d", len(deck))
	}
}

func TestNewDeckShuffleIsNotDeterministic(t *testing.T) {
	// две тасовки подряд практически не могут совпасть полностью
	same := true
	a := NewDeck(36)
	b := NewDeck(36)
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("две тасовки дали одинаковый порядок — перемешивание не работает")
	}
}

func TestRankValues(t *testing.T) {
	pairs := [][2]Card{
		{{Rank6, SuitSpades}, {Rank7, SuitSpades}},
		{{Rank10, SuitHearts}, {RankJ, SuitHearts}},
		{{RankJ, SuitClubs}, {RankQ, SuitClubs}},
		{{RankQ, SuitClubs}, {RankK, SuitClubs}},
		{{RankK, SuitDiamonds}, {RankA, SuitDiamonds}},
		{{Rank2, SuitSpades}, {Rank3, SuitSpades}},
	}
	for _, p := range pairs {
		if p[0].Value() >= p[1].Value() {
			t.Fatalf("ожидалось %s < %s", p[0].String(), p[1].String())
		}
	}
}
