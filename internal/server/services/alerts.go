package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/checkpost/internal/logging"
	"github.com/dmitrijs2005/checkpost/internal/server/metrics"
	"github.com/dmitrijs2005/checkpost/internal/server/models"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/checkpost/internal/timex"
)

// AlertService raises expected-overstay alerts for entries that have not
// exited in time.
type AlertService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	clock       timex.Clock
	metrics     *metrics.Metrics
	logger      logging.Logger
}

func NewAlertService(db *sql.DB, m repomanager.RepositoryManager, clock timex.Clock, mt *metrics.Metrics, l logging.Logger) *AlertService {
	return &AlertService{
		db:          db,
		repomanager: m,
		clock:       clock,
		metrics:     mt,
		logger:      l.With("module", "alerts"),
	}
}

// ScanOverdue creates an alert for every unmatched passage past its
// expected-exit deadline. Safe to run concurrently and repeatedly: each
// entry gets at most one alert.
func (s *AlertService) ScanOverdue(ctx context.Context) (int64, error) {
	n, err := s.repomanager.Alerts(s.db).CreateOverdue(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("overdue scan: %w", err)
	}
	if n > 0 {
		s.metrics.AlertsCreated.Add(float64(n))
		s.logger.Warn(ctx, "expected-overstay alerts raised", "count", n)
	}
	return n, nil
}

func (s *AlertService) ListOpen(ctx context.Context, limit int) ([]*models.OverstayAlert, error) {
	return s.repomanager.Alerts(s.db).ListOpen(ctx, limit)
}
