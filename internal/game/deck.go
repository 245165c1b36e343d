package game

import (
	"crypto/rand"
	"math/big"
)

// Масти — четыре фиксированных символа
type Suit string

const (
	SuitSpades   Suit = "♠"
	SuitHearts   Suit = "♥"
	SuitDiamonds Suit = "♦"
	SuitClubs    Suit = "♣"
)

var suits = []Suit{SuitSpades, SuitHearts, SuitDiamonds, SuitClubs}

// Достоинство карты. Числовые ранги храним строками ("6".."10"),
// картинки — буквами, как в клиентском протоколе
type Rank string

const (
	Rank2  Rank = "2"
	Rank3  Rank = "3"
	Rank4  Rank = "4"
	Rank5  Rank = "5"
	Rank6  Rank = "6"
	Rank7  Rank = "7"
	Rank8  Rank = "8"
	Rank9  Rank = "9"
	Rank10 Rank = "10"
	RankJ  Rank = "J"
	RankQ  Rank = "Q"
	RankK  Rank = "K"
	RankA  Rank = "A"
)

// числовое значение для сравнения: 2<3<...<10<J<Q<K<A
var rankValues = map[Rank]int{
	Rank2: 2, Rank3: 3, Rank4: 4, Rank5: 5,
	Rank6: 6, Rank7: 7, Rank8: 8, Rank9: 9, Rank10: 10,
	RankJ: 11, RankQ: 12, RankK: 13, RankA: 14,
}

// наборы рангов для поддерживаемых размеров колоды
var (
	ranks24 = []Rank{Rank9, Rank10, RankJ, RankQ, RankK, RankA}
	ranks36 = []Rank{Rank6, Rank7, Rank8, Rank9, Rank10, RankJ, RankQ, RankK, RankA}
	ranks52 = []Rank{Rank2, Rank3, Rank4, Rank5, Rank6, Rank7, Rank8, Rank9, Rank10, RankJ, RankQ, RankK, RankA}
)

// Card — неизменяемое значение; равенство по паре (ранг, масть)
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

// Value возвращает числовое достоинство карты
func (c Card) Value() int {
	return rankValues[c.Rank]
}

func (c Card) String() string {
	return string(c.Rank) + string(c.Suit)
}

// secureRandInt возвращает криптографически стойкое случайное число в [0, max)
func secureRandInt(max int64) int64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(max))
	return n.Int64()
}

// NewDeck строит и тасует колоду заданного размера (24/36/52).
// Неподдерживаемый размер откатывается к 36 картам.
// Тасование — Фишер-Йетс на crypto/rand: игра на деньги,
// предсказуемый PRNG здесь недопустим
func NewDeck(size int) []Card {
	var ranks []Rank
	switch size {
	case 24:
		ranks = ranks24
	case 52:
		ranks = ranks52
	default:
		ranks = ranks36
	}

	deck := make([]Card, 0, len(suits)*len(ranks))
	for _, s := range suits {
		for _, r := range ranks {
			deck = append(deck, Card{Rank: r, Suit: s})
		}
	}

	for i := len(deck) - 1; i > 0; i-- {
		j := secureRandInt(int64(i + 1))
		deck[i], deck[j] = deck[j], deck[i]
	}

	return deck
}
