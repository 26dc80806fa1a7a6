// Package smscodec encodes passages into the compact, versioned SMS payload
// used when a device has no data connectivity, and decodes such payloads on
// the server side.
//
// Wire format (pipe-delimited, exactly six fields):
//
//	V1|<checkpostCode>|<compactPlate>|<vehicleTypeCode>|<epochSeconds>|<rangerPhoneSuffix>
//
// The encoded message never exceeds MaxLength characters; longer messages
// are rejected, never truncated.
package smscodec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/checkpost/internal/common"
)

const (
	// Version is the only payload version understood by this codec.
	Version = "V1"
	// MaxLength is the single-SMS budget.
	MaxLength = 160
	// PhoneSuffixLength is the number of trailing phone digits carried.
	PhoneSuffixLength = 4

	separator  = "|"
	fieldCount = 6
)

var (
	ErrFieldCount   = errors.New("sms: wrong field count")
	ErrVersion      = errors.New("sms: unsupported version")
	ErrTimestamp    = errors.New("sms: invalid timestamp")
	ErrTooLong      = errors.New("sms: message exceeds length budget")
	ErrInvalidField = errors.New("sms: invalid field")
)

// Message is the information carried by one SMS.
type Message struct {
	CheckpostCode     string
	Plate             string
	VehicleType       common.VehicleType
	CapturedAt        time.Time
	RangerPhoneSuffix string
}

// Encode renders m into its wire form. The plate is compacted, the capture
// instant is truncated to whole UTC seconds.
func Encode(m Message) (string, error) {
	plate := common.CompactPlate(m.Plate)

	for name, v := range map[string]string{
		"checkpost code": m.CheckpostCode,
		"plate":          plate,
		"phone suffix":   m.RangerPhoneSuffix,
	} {
		if v == "" || strings.ContainsAny(v, separator+"\r\n") || strings.TrimSpace(v) != v {
			return "", fmt.Errorf("%w: %s %q", ErrInvalidField, name, v)
		}
	}
	if m.CapturedAt.IsZero() {
		return "", fmt.Errorf("%w: capture time is zero", ErrInvalidField)
	}

	s := strings.Join([]string{
		Version,
		m.CheckpostCode,
		plate,
		m.VehicleType.Code(),
		strconv.FormatInt(m.CapturedAt.UTC().Unix(), 10),
		m.RangerPhoneSuffix,
	}, separator)

	if n := utf8.RuneCountInString(s); n > MaxLength {
		return "", fmt.Errorf("%w: %d > %d", ErrTooLong, n, MaxLength)
	}
	return s, nil
}

// Decode parses a wire payload. Unrecognized vehicle codes decode as
// common.VehicleOther instead of failing.
func Decode(s string) (Message, error) {
	parts := strings.Split(strings.TrimSpace(s), separator)
	if len(parts) != fieldCount {
		return Message{}, fmt.Errorf("%w: got %d", ErrFieldCount, len(parts))
	}
	if parts[0] != Version {
		return Message{}, fmt.Errorf("%w: %q", ErrVersion, parts[0])
	}

	secs, err := strconv.ParseInt(parts[4], 10, 64)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %q", ErrTimestamp, parts[4])
	}

	vt, _ := common.VehicleTypeFromCode(parts[3])

	return Message{
		CheckpostCode:     parts[1],
		Plate:             parts[2],
		VehicleType:       vt,
		CapturedAt:        time.Unix(secs, 0).UTC(),
		RangerPhoneSuffix: parts[5],
	}, nil
}

// PhoneSuffix returns the trailing PhoneSuffixLength digits of a phone
// number, ignoring any non-digit characters.
func PhoneSuffix(phone string) string {
	digits := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		if phone[i] >= '0' && phone[i] <= '9' {
			digits = append(digits, phone[i])
		}
	}
	if len(digits) > PhoneSuffixLength {
		digits = digits[len(digits)-PhoneSuffixLength:]
	}
	return string(digits)
}
