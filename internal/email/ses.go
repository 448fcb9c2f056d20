package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog/log"
)

// sesAPI is the slice of the SESv2 client used for delivery.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESClient wraps AWS SESv2 sending.
type SESClient struct {
	client sesAPI
	sender string
}

var _ EmailSender = (*SESClient)(nil)

// NewSESClient initializes an SES client using static credentials and region.
func NewSESClient(accessKeyID, secretAccessKey, region, sender string) (*SESClient, error) {
	if accessKeyID == "" || secretAccessKey == "" || region == "" {
		return nil, fmt.Errorf("ses credentials and region are required")
	}
	if sender == "" {
		return nil, fmt.Errorf("ses sender is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &SESClient{
		client: sesv2.NewFromConfig(awsCfg),
		sender: sender,
	}, nil
}

// Send delivers msg and returns the SES message id.
func (c *SESClient) Send(ctx context.Context, msg Message) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("ses client is not initialized")
	}
	recipient := strings.TrimSpace(msg.To)
	if recipient == "" {
		return "", fmt.Errorf("recipient is required")
	}

	from := strings.TrimSpace(msg.From)
	if from == "" {
		from = c.sender
	}
	if from == "" {
		return "", fmt.Errorf("sender is required")
	}

	body := &types.Body{
		Text: &types.Content{Data: aws.String(msg.Text)},
	}
	if msg.HTML != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTML)}
	}

	input := &sesv2.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{recipient},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject)},
				Body:    body,
			},
		},
		FromEmailAddress: aws.String(from),
	}

	out, err := c.client.SendEmail(ctx, input)
	if err != nil {
		log.Ctx(ctx).Error().
			Err(err).
			Str("recipient", recipient).
			Str("subject", msg.Subject).
			Time("timestamp", time.Now().UTC()).
			Msg("Failed to send SES email")
		return "", fmt.Errorf("send ses email: %w", err)
	}

	return aws.ToString(out.MessageId), nil
}
