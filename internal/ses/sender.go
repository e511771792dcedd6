// Package ses sends campaign email through AWS SES v2.
//
// Every outbound message carries an X-Campaign-Data header with the send and
// campaign identifiers. Delivery notifications echo the message headers back,
// which is how the webhook pipeline correlates provider events to sends.
package ses

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	appconfig "github.com/CR-AudioViz-AI/crav-newsletter-web/internal/config"
	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/domain"
	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/pkg/logger"
	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/service/events"
)

// api is the slice of the SES v2 client the sender uses.
type api interface {
	SendEmail(ctx context.Context, input *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SuppressionChecker blocks sends to suppressed recipients.
type SuppressionChecker interface {
	IsSuppressed(ctx context.Context, orgID, email string) (bool, error)
}

// Message is the renderable content of one email.
type Message struct {
	Subject  string
	HTML     string
	Text     string
	FromName string
}

// Sender delivers campaign email via AWS SES.
type Sender struct {
	client      api
	suppression SuppressionChecker
	fromEmail   string
	configSet   string
}

// NewSender creates an SES sender from static credentials. The client is left
// nil when credentials are missing; Send then fails with ErrNotConfigured.
func NewSender(ctx context.Context, cfg appconfig.SESConfig, suppression SuppressionChecker) (*Sender, error) {
	s := &Sender{
		suppression: suppression,
		fromEmail:   cfg.FromEmail,
		configSet:   cfg.ConfigurationSet,
	}

	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return s, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	s.client = sesv2.NewFromConfig(awsCfg)

	return s, nil
}

// correlation is the X-Campaign-Data header body. Key names must match what
// the event normalizer reads back out of delivery notifications.
type correlation struct {
	SendID     string `json:"sendId"`
	CampaignID string `json:"campaignId"`
}

// Send delivers one email for the given send record and returns the provider
// message id. Suppressed recipients are rejected with ErrSuppressed before
// the provider is called.
func (s *Sender) Send(ctx context.Context, send *domain.Send, msg *Message) (string, error) {
	if s.client == nil {
		return "", ErrNotConfigured
	}

	suppressed, err := s.suppression.IsSuppressed(ctx, send.OrganizationID, send.Email)
	if err != nil {
		return "", fmt.Errorf("suppression check: %w", err)
	}
	if suppressed {
		return "", ErrSuppressed
	}

	header, err := json.Marshal(correlation{SendID: send.ID, CampaignID: send.CampaignID})
	if err != nil {
		return "", fmt.Errorf("encoding correlation header: %w", err)
	}

	from := s.fromEmail
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", msg.FromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &sestypes.Destination{ToAddresses: []string{send.Email}},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &sestypes.Body{
					Html: &sestypes.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				},
				Headers: []sestypes.MessageHeader{
					{Name: aws.String(events.CorrelationHeader), Value: aws.String(string(header))},
				},
			},
		},
		EmailTags: []sestypes.MessageTag{
			{Name: aws.String("send_id"), Value: aws.String(send.ID)},
			{Name: aws.String("campaign_id"), Value: aws.String(send.CampaignID)},
		},
	}
	if msg.Text != "" {
		input.Content.Simple.Body.Text = &sestypes.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}
	}
	if s.configSet != "" {
		input.ConfigurationSetName = aws.String(s.configSet)
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		logger.Error("ses send failed", "email", logger.RedactEmail(send.Email), "error", err)
		return "", fmt.Errorf("ses send: %w", err)
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	logger.Info("ses send accepted", "email", logger.RedactEmail(send.Email), "message_id", messageID)

	return messageID, nil
}
