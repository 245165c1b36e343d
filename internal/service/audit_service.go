package service

import (
	"context"

	"durak_webapp/internal/domain"
	"durak_webapp/internal/logger"
	"durak_webapp/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// обрабатывает логирование аудита
type AuditService struct {
	repo *repository.AuditRepository
}

// создает новый сервис аудита
func NewAuditService(db *pgxpool.Pool) *AuditService {
	return &AuditService{
		repo: repository.NewAuditRepository(db),
	}
}

// создает новую запись в журнале аудита
func (s *AuditService) Log(ctx context.Context, userID int64, action, category string, details map[string]interface{}) {
	log := &domain.AuditLog{
		UserID:   userID,
		Action:   action,
		Category: category,
		Details:  details,
	}

	if err := s.repo.Create(ctx, log); err != nil {
		logger.Error("не удалось создать запись аудита", "error", err, "action", action, "user_id", userID)
	}
}

// создает запись аудита с информацией о запросе (ip, user-agent)
func (s *AuditService) LogWithRequest(ctx context.Context, userID int64, action, category, ip, userAgent string, details map[string]interface{}) {
	log := &domain.AuditLog{
		UserID:    userID,
		Action:    action,
		Category:  category,
		Details:   details,
		IP:        ip,
		UserAgent: userAgent,
	}

	if err := s.repo.Create(ctx, log); err != nil {
		logger.Error("не удалось создать запись аудита", "error", err, "action", action, "user_id", userID)
	}
}

// логирует итог матча для участника
func (s *AuditService) LogMatchResult(ctx context.Context, userID int64, matchID, result string, bet, payout int64) {
	details := map[string]interface{}{
		"match_id": matchID,
		"result":   result,
		"bet":      bet,
		"payout":   payout,
	}

	s.Log(ctx, userID, domain.AuditActionMatchEnd, domain.AuditCategoryGame, details)
}

// логирует выбывание игрока из матча по АФК или дисконнекту
func (s *AuditService) LogForfeit(ctx context.Context, userID int64, matchID, reason string) {
	details := map[string]interface{}{
		"match_id": matchID,
		"reason":   reason,
	}

	s.Log(ctx, userID, domain.AuditActionMatchForfeit, domain.AuditCategoryGame, details)
}

// логирует результат расчёта по матчу
func (s *AuditService) LogSettlement(ctx context.Context, matchID string, ok bool, details map[string]interface{}) {
	action := domain.AuditActionSettleOK
	if !ok {
		action = domain.AuditActionSettleFailed
	}

	if details == nil {
		details = make(map[string]interface{})
	}
	details["match_id"] = matchID

	s.Log(ctx, 0, action, domain.AuditCategoryGame, details)
}

// логирует действие администратора
func (s *AuditService) LogAdminAction(ctx context.Context, adminID int64, action string, targetUserID int64, details map[string]interface{}) {
	if details == nil {
		details = make(map[string]interface{})
	}
	details["admin_id"] = adminID
	details["target_user_id"] = targetUserID

	s.Log(ctx, targetUserID, action, domain.AuditCategoryAdmin, details)
}

// логирует вход пользователя
func (s *AuditService) LogLogin(ctx context.Context, userID int64, ip, userAgent string) {
	s.LogWithRequest(ctx, userID, domain.AuditActionLogin, domain.AuditCategoryAuth, ip, userAgent, nil)
}

// логирует изменение баланса
func (s *AuditService) LogBalanceChange(ctx context.Context, userID int64, change int64, reason string, details map[string]interface{}) {
	action := domain.AuditActionBalanceCredit
	if change < 0 {
		action = domain.AuditActionBalanceDebit
	}

	if details == nil {
		details = make(map[string]interface{})
	}
	details["change"] = change
	details["reason"] = reason

	s.Log(ctx, userID, action, domain.AuditCategoryBalance, details)
}

// возвращает записи аудита для пользователя
func (s *AuditService) GetUserAuditLogs(ctx context.Context, userID int64, limit int) ([]*domain.AuditLog, error) {
	return s.repo.GetByUserID(ctx, userID, limit)
}

// возвращает последние записи аудита
func (s *AuditService) GetRecentLogs(ctx context.Context, limit int) ([]*domain.AuditLog, error) {
	return s.repo.GetRecent(ctx, limit)
}
