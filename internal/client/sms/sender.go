// Package sms delivers encoded passage payloads to the SMS gateway number
// when the device has no data connectivity.
package sms

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/dmitrijs2005/checkpost/internal/logging"
	"github.com/dmitrijs2005/checkpost/internal/smscodec"
	"golang.org/x/time/rate"
)

var (
	ErrNoGateway = errors.New("sms: no gateway number configured")
	ErrEmpty     = errors.New("sms: empty message")
)

// Sender transmits one text message. A nil error means the transport
// accepted it; there is no delivery receipt.
type Sender interface {
	Send(ctx context.Context, body string) error
}

// snsAPI is the slice of the SNS client the sender uses.
type snsAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// seam for tests
var loadDefaultAWSConfig = config.LoadDefaultConfig

// SNSSender publishes messages to a phone number through Amazon SNS,
// paced so bursts after a long offline stretch stay within carrier limits.
type SNSSender struct {
	api     snsAPI
	to      string
	limiter *rate.Limiter
	log     logging.Logger
}

// NewSNSSender paces sends to perMinute messages per minute; zero or
// negative disables pacing.
func NewSNSSender(api snsAPI, to string, perMinute int, log logging.Logger) *SNSSender {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &SNSSender{
		api:     api,
		to:      to,
		limiter: rate.NewLimiter(limit, 1),
		log:     log.With("module", "sms"),
	}
}

// NewSNSSenderFromConfig builds the SNS client from the default AWS
// credential chain.
func NewSNSSenderFromConfig(ctx context.Context, region, to string, perMinute int, log logging.Logger) (*SNSSender, error) {
	if to == "" {
		return nil, ErrNoGateway
	}
	cfg, err := loadDefaultAWSConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	return NewSNSSender(sns.NewFromConfig(cfg), to, perMinute, log), nil
}

func (s *SNSSender) Send(ctx context.Context, body string) error {
	if s.to == "" {
		return ErrNoGateway
	}
	if body == "" {
		return ErrEmpty
	}
	if utf8.RuneCountInString(body) > smscodec.MaxLength {
		return smscodec.ErrTooLong
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	out, err := s.api.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(s.to),
		Message:     aws.String(body),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}

	s.log.Debug(ctx, "sms sent", "message_id", aws.ToString(out.MessageId))
	return nil
}
