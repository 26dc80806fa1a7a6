package grpc

import (
	"math"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/common"
	pb "github.com/dmitrijs2005/checkpost/internal/proto"
	"github.com/dmitrijs2005/checkpost/internal/server/models"
)

func msToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func passageFromPB(p *pb.Passage) *models.Passage {
	return &models.Passage{
		ClientID:    p.ClientId,
		Plate:       p.Plate,
		RawPlate:    p.RawPlate,
		VehicleType: common.ParseVehicleType(p.VehicleType),
		CheckpostID: p.CheckpostId,
		SegmentID:   p.SegmentId,
		RecordedAt:  msToTime(p.RecordedAtMs),
		PhotoKey:    p.PhotoKey,
		Source:      common.Source(p.Source),
	}
}

func passageToPB(p *models.Passage) *pb.Passage {
	out := &pb.Passage{
		Id:           p.ID,
		ClientId:     p.ClientID,
		Plate:        p.Plate,
		RawPlate:     p.RawPlate,
		VehicleType:  string(p.VehicleType),
		CheckpostId:  p.CheckpostID,
		SegmentId:    p.SegmentID,
		RecordedAtMs: p.RecordedAt.UnixMilli(),
		PhotoKey:     p.PhotoKey,
		Source:       string(p.Source),
	}
	if p.RangerID != nil {
		out.RangerId = *p.RangerID
	}
	if p.MatchedPassageID != nil {
		out.MatchedPassageId = *p.MatchedPassageID
	}
	return out
}

func matchToPB(m *models.MatchOutcome) *pb.MatchResult {
	if m == nil {
		return nil
	}
	out := &pb.MatchResult{
		EntryId:        m.EntryID,
		ExitId:         m.ExitID,
		Plate:          m.Plate,
		SegmentId:      m.SegmentID,
		TravelMinutes:  m.TravelMinutes,
		AlertsResolved: int32(m.AlertsResolved),
	}
	if v := m.Violation; v != nil {
		out.Violation = &pb.Violation{
			Id:               v.ID,
			Type:             string(v.Type),
			ThresholdMinutes: v.ThresholdMinutes,
		}
		if speed := v.SpeedKmh; !math.IsInf(speed, 0) {
			out.Violation.SpeedKmh = &speed
		}
	}
	return out
}

func segmentToPB(s *models.Segment) *pb.Segment {
	return &pb.Segment{
		Id:          s.ID,
		Name:        s.Name,
		DistanceKm:  s.DistanceKm,
		MaxSpeedKmh: s.MaxSpeedKmh,
		MinSpeedKmh: s.MinSpeedKmh,
	}
}
