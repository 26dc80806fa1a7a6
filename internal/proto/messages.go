package proto

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type LoginRequest struct {
	RangerId int64  `json:"ranger_id"`
	Pin      string `json:"pin"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Passage is the wire form of a recorded passage. Times are Unix
// milliseconds in UTC.
type Passage struct {
	Id               int64  `json:"id,omitempty"`
	ClientId         string `json:"client_id"`
	Plate            string `json:"plate"`
	RawPlate         string `json:"raw_plate,omitempty"`
	VehicleType      string `json:"vehicle_type"`
	CheckpostId      int64  `json:"checkpost_id"`
	SegmentId        int64  `json:"segment_id"`
	RecordedAtMs     int64  `json:"recorded_at_ms"`
	RangerId         int64  `json:"ranger_id"`
	PhotoKey         string `json:"photo_key,omitempty"`
	Source           string `json:"source"`
	MatchedPassageId int64  `json:"matched_passage_id,omitempty"`
}

const (
	PushStatusCreated   = "created"
	PushStatusDuplicate = "duplicate"
)

type PushPassageRequest struct {
	Passage *Passage `json:"passage"`
}

type PushPassageResponse struct {
	Status    string       `json:"status"`
	PassageId int64        `json:"passage_id"`
	Match     *MatchResult `json:"match,omitempty"`
}

type ListUnmatchedRequest struct {
	SegmentId          int64 `json:"segment_id"`
	ExcludeCheckpostId int64 `json:"exclude_checkpost_id"`
	SinceMs            int64 `json:"since_ms"`
	Limit              int32 `json:"limit"`
}

type ListUnmatchedResponse struct {
	Passages []*Passage `json:"passages"`
}

type MatchRequest struct {
	EntryPassageId int64 `json:"entry_passage_id"`
	ExitPassageId  int64 `json:"exit_passage_id"`
}

// Violation is an authoritative verdict. SpeedKmh is nil when the pair has
// zero travel time, which JSON cannot carry as a number.
type Violation struct {
	Id               int64    `json:"id"`
	Type             string   `json:"type"`
	ThresholdMinutes float64  `json:"threshold_minutes"`
	SpeedKmh         *float64 `json:"speed_kmh"`
}

type MatchResult struct {
	EntryId        int64      `json:"entry_id"`
	ExitId         int64      `json:"exit_id"`
	Plate          string     `json:"plate"`
	SegmentId      int64      `json:"segment_id"`
	TravelMinutes  float64    `json:"travel_minutes"`
	Violation      *Violation `json:"violation"`
	AlertsResolved int32      `json:"alerts_resolved"`
}

type GetSegmentRequest struct {
	SegmentId int64 `json:"segment_id"`
}

type Segment struct {
	Id          int64   `json:"id"`
	Name        string  `json:"name"`
	DistanceKm  float64 `json:"distance_km"`
	MaxSpeedKmh float64 `json:"max_speed_kmh"`
	MinSpeedKmh float64 `json:"min_speed_kmh"`
}

type PhotoUploadURLRequest struct {
	ClientId string `json:"client_id"`
}

type PhotoUploadURLResponse struct {
	Key string `json:"key"`
	Url string `json:"url"`
}

type AttachPhotoRequest struct {
	ClientId string `json:"client_id"`
	PhotoKey string `json:"photo_key"`
}

type AttachPhotoResponse struct{}
