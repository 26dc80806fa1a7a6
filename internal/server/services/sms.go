package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/dmitrijs2005/checkpost/internal/logging"
	"github.com/dmitrijs2005/checkpost/internal/server/metrics"
	"github.com/dmitrijs2005/checkpost/internal/server/models"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/checkpost/internal/smscodec"
	"github.com/google/uuid"
)

// smsNamespace scopes the name-based UUIDs derived from SMS payloads.
var smsNamespace = uuid.MustParse("6f1c8d2e-3a47-5b9e-8c0d-1e2f3a4b5c6d")

// SMSClientID derives the idempotency key of an SMS-delivered passage. The
// same payload always yields the same id, so gateway redelivery is a
// duplicate.
func SMSClientID(body string) string {
	return uuid.NewSHA1(smsNamespace, []byte(strings.TrimSpace(body))).String()
}

// SMSService turns gateway reports into passages.
type SMSService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	passages    *PassageService
	metrics     *metrics.Metrics
	logger      logging.Logger
}

func NewSMSService(db *sql.DB, m repomanager.RepositoryManager, p *PassageService, mt *metrics.Metrics, l logging.Logger) *SMSService {
	return &SMSService{
		db:          db,
		repomanager: m,
		passages:    p,
		metrics:     mt,
		logger:      l.With("module", "sms"),
	}
}

// Ingest decodes one SMS body and stores the passage it describes. Payload
// problems are reported as common.ErrInvalidPassage.
func (s *SMSService) Ingest(ctx context.Context, from, body string) (*IngestResult, error) {
	result, err := s.ingest(ctx, from, body)

	label := "rejected"
	if err == nil {
		label = "accepted"
		if result.Status == IngestDuplicate {
			label = "duplicate"
		}
	}
	s.metrics.SMSInbound.WithLabelValues(label).Inc()
	return result, err
}

func (s *SMSService) ingest(ctx context.Context, from, body string) (*IngestResult, error) {
	msg, err := smscodec.Decode(body)
	if err != nil {
		s.logger.Warn(ctx, "undecodable sms", "from", from, "err", err)
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidPassage, err)
	}

	checkpost, err := s.repomanager.Checkposts(s.db).GetByCode(ctx, msg.CheckpostCode)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("%w: unknown checkpost code %q", common.ErrInvalidPassage, msg.CheckpostCode)
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpost: %w", err)
	}

	p := &models.Passage{
		ClientID:    SMSClientID(body),
		Plate:       msg.Plate,
		RawPlate:    msg.Plate,
		VehicleType: msg.VehicleType,
		CheckpostID: checkpost.ID,
		SegmentID:   checkpost.SegmentID,
		RecordedAt:  msg.CapturedAt,
		Source:      common.SourceSMS,
	}

	ranger, err := s.repomanager.Rangers(s.db).FindByPhoneSuffix(ctx, checkpost.ID, msg.RangerPhoneSuffix)
	switch {
	case err == nil:
		p.RangerID = &ranger.ID
	case errors.Is(err, common.ErrorNotFound):
		s.logger.Warn(ctx, "sms from unknown ranger", "checkpost", checkpost.Code, "suffix", msg.RangerPhoneSuffix)
	default:
		return nil, fmt.Errorf("load ranger: %w", err)
	}

	return s.passages.Ingest(ctx, p)
}
