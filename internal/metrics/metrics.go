package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Счётчики движка, отдаются через /metrics
var (
	ActiveMatches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "durak_active_matches",
		Help: "Число матчей в реестре",
	})

	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "durak_actions_total",
		Help: "Принятые игровые действия по типам",
	}, []string{"action"})

	RejectedActions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "durak_rejected_actions_total",
		Help: "Действия, отклонённые валидацией правил",
	})

	Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "durak_settlements_total",
		Help: "Расчёты матчей по результату (ok/failed)",
	}, []string{"status"})

	AFKEjections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "durak_afk_ejections_total",
		Help: "Игроки, исключённые за бездействие",
	})

	Timeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "durak_turn_timeouts_total",
		Help: "Сработавшие таймауты хода",
	})

	BotMoves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "durak_bot_moves_total",
		Help: "Ходы, сделанные ботами",
	})
)
