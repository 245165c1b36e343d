package service

import (
	"context"

	"durak_webapp/internal/domain"
	"durak_webapp/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgSettlementStore пишет итог матча в постгрес одной транзакцией:
// запись матча, участники, статистика, рейтинг и выплаты — или ничего
type PgSettlementStore struct {
	db      *pgxpool.Pool
	users   *repository.UserRepository
	matches *repository.MatchRepository
	txRepo  *repository.TransactionRepository
}

func NewPgSettlementStore(db *pgxpool.Pool) *PgSettlementStore {
	return &PgSettlementStore{
		db:      db,
		users:   repository.NewUserRepository(db),
		matches: repository.NewMatchRepository(db),
		txRepo:  repository.NewTransactionRepository(db),
	}
}

func (st *PgSettlementStore) AlreadySettled(ctx context.Context, matchID string) (bool, error) {
	return st.matches.Exists(ctx, matchID)
}

func (st *PgSettlementStore) SaveSettlement(ctx context.Context, rec *domain.MatchRecord, parts []*domain.MatchParticipant) error {
	tx, err := st.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := st.matches.CreateWithParticipantsTx(ctx, tx, rec, parts); err != nil {
		return err
	}

	for _, p := range parts {
		if p.IsBot || p.UserID == 0 {
			continue
		}

		if err := st.users.ApplyMatchResultTx(ctx, tx, p.UserID, p.Result, p.RatingDelta); err != nil {
			return err
		}

		if p.Payout > 0 {
			if err := st.users.CreditCoinsTx(ctx, tx, p.UserID, p.Payout); err != nil {
				return err
			}

			txType := domain.TxTypePayout
			if p.Result != domain.MatchResultWin {
				txType = domain.TxTypeRefund
			}
			t := &domain.Transaction{
				UserID: p.UserID,
				Type:   txType,
				Amount: p.Payout,
				Meta:   map[string]interface{}{"match_id": rec.MatchID},
			}
			if err := st.txRepo.CreateWithTx(ctx, tx, t); err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}
