package domain

import "time"

// Движение монет по счёту, одна строка на операцию
type Transaction struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    int64                  `db:"user_id" json:"user_id"`
	Type      string                 `db:"type" json:"type"`
	Amount    int64                  `db:"amount" json:"amount"` // отрицательное при списании
	Meta      map[string]interface{} `db:"meta" json:"meta"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

const (
	TxTypeBet    = "bet"     // резерв ставки при входе в матч
	TxTypePayout = "payout"  // выплата банка победителю
	TxTypeRefund = "refund"  // возврат ставки при отмене или ничьей
	TxTypeAdmin  = "admin"   // ручная корректировка
)
