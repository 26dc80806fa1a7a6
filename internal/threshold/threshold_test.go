package threshold

import (
	"math"
	"testing"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var segment = Bounds{DistanceKm: 50, MaxSpeedKmh: 40, MinSpeedKmh: 10}

func TestBounds_Limits(t *testing.T) {
	assert.InDelta(t, 75.0, segment.MinTravelMinutes(), 1e-9)
	assert.InDelta(t, 300.0, segment.MaxTravelMinutes(), 1e-9)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		travel    time.Duration
		want      common.ViolationType
		threshold float64
		speed     float64
	}{
		{name: "within window", travel: 100 * time.Minute, want: common.ViolationNone, threshold: 0, speed: 30},
		{name: "speeding", travel: 45 * time.Minute, want: common.ViolationSpeeding, threshold: 75, speed: 66.6667},
		{name: "overstay", travel: 350 * time.Minute, want: common.ViolationOverstay, threshold: 300, speed: 8.5714},
		{name: "lower boundary inclusive", travel: 75 * time.Minute, want: common.ViolationNone, speed: 40},
		{name: "upper boundary inclusive", travel: 300 * time.Minute, want: common.ViolationNone, speed: 10},
		{name: "negative treated as absolute", travel: -45 * time.Minute, want: common.ViolationSpeeding, threshold: 75, speed: 66.6667},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := segment.Classify(tt.travel)
			assert.Equal(t, tt.want, got.Classification)
			assert.InDelta(t, tt.threshold, got.ThresholdMinutes, 1e-9)
			assert.InDelta(t, tt.speed, got.ComputedSpeedKmh, 1e-3)
			assert.InDelta(t, math.Abs(tt.travel.Minutes()), got.TravelMinutes, 1e-9)
			assert.Equal(t, tt.want != common.ViolationNone, got.Violation())
		})
	}
}

func TestClassify_ZeroTravelIsSpeeding(t *testing.T) {
	got := Classify(50, 0, 40, 10)
	assert.Equal(t, common.ViolationSpeeding, got.Classification)
	assert.True(t, math.IsInf(got.ComputedSpeedKmh, 1))
	assert.InDelta(t, 75.0, got.ThresholdMinutes, 1e-9)
}

func TestClassify_ConsistentWithLimits(t *testing.T) {
	bounds := []Bounds{
		{DistanceKm: 12.5, MaxSpeedKmh: 60, MinSpeedKmh: 5},
		{DistanceKm: 50, MaxSpeedKmh: 40, MinSpeedKmh: 10},
		{DistanceKm: 3, MaxSpeedKmh: 30, MinSpeedKmh: 30},
	}
	for _, b := range bounds {
		for minutes := 1; minutes <= 800; minutes += 7 {
			got := b.Classify(time.Duration(minutes) * time.Minute)
			m := float64(minutes)
			switch {
			case m < b.MinTravelMinutes():
				require.Equal(t, common.ViolationSpeeding, got.Classification)
				require.InDelta(t, b.MinTravelMinutes(), got.ThresholdMinutes, 1e-9)
			case m > b.MaxTravelMinutes():
				require.Equal(t, common.ViolationOverstay, got.Classification)
				require.InDelta(t, b.MaxTravelMinutes(), got.ThresholdMinutes, 1e-9)
			default:
				require.False(t, got.Violation())
			}
		}
	}
}

func TestBounds_Validate(t *testing.T) {
	require.NoError(t, segment.Validate())
	require.ErrorIs(t, Bounds{DistanceKm: 0, MaxSpeedKmh: 40, MinSpeedKmh: 10}.Validate(), ErrInvalidBounds)
	require.ErrorIs(t, Bounds{DistanceKm: 5, MaxSpeedKmh: 10, MinSpeedKmh: 40}.Validate(), ErrInvalidBounds)
	require.ErrorIs(t, Bounds{DistanceKm: 5, MaxSpeedKmh: 40, MinSpeedKmh: 0}.Validate(), ErrInvalidBounds)
}
