package billing

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailSender sends subscription confirmation emails via SES.
type EmailSender struct {
	client    *ses.Client
	fromEmail string
}

func NewEmailSender(ctx context.Context, region, fromEmail string) (*EmailSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &EmailSender{
		client:    ses.NewFromConfig(cfg),
		fromEmail: fromEmail,
	}, nil
}

func (e *EmailSender) SendSubscriptionConfirmation(ctx context.Context, toEmail string) error {
	subject := "Welcome to TubeScript AI Pro"
	body := "Your subscription is active. You now have unlimited script generations.\n\n" +
		"Manage your subscription any time from your account page."

	_, err := e.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: &e.fromEmail,
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: &subject},
			Body: &types.Body{
				Text: &types.Content{Data: &body},
			},
		},
	})
	return err
}
