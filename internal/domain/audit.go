package domain

import "time"

// Логирование мастхев важных действий
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    int64                  `db:"user_id" json:"user_id"`
	Action    string                 `db:"action" json:"action"`
	Category  string                 `db:"category" json:"category"`
	Details   map[string]interface{} `db:"details" json:"details"`
	IP        string                 `db:"ip" json:"ip,omitempty"`
	UserAgent string                 `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Категории совершенных действий
const (
	AuditCategoryAuth    = "auth"
	AuditCategoryGame    = "game"
	AuditCategoryBalance = "balance"
	AuditCategoryAdmin   = "admin"
)

const (
	// Авторизация
	AuditActionLogin  = "login"
	AuditActionLogout = "logout"

	// Матчи
	AuditActionMatchStart  = "match_start"
	AuditActionMatchEnd    = "match_end"
	AuditActionMatchBet    = "match_bet"
	AuditActionMatchForfeit = "match_forfeit"

	// Баланс
	AuditActionBalanceCredit = "balance_credit"
	AuditActionBalanceDebit  = "balance_debit"
	AuditActionBetRefund     = "bet_refund"

	// Расчёт по матчу
	AuditActionSettleOK     = "settle_ok"
	AuditActionSettleFailed = "settle_failed"
	AuditActionSettleRetry  = "settle_retry"

	// Действия админов
	AuditActionAdminAddCoins  = "admin_add_coins"
	AuditActionAdminForceSettle = "admin_force_settle"
	AuditActionAdminBanUser   = "admin_ban_user"
	AuditActionAdminUnbanUser = "admin_unban_user"
)
