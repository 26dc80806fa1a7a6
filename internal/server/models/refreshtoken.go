package models

import "time"

type RefreshToken struct {
	ID        int64
	RangerID  int64
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}
