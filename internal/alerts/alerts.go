// internal/alerts/alerts.go
package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	awsclients "studybuddy-payments/internal/common/aws"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Alert describes a verified payment whose subscription write failed.
type Alert struct {
	Source    string    `json:"source"`
	Reference string    `json:"reference"`
	UserID    string    `json:"userId,omitempty"`
	Email     string    `json:"email,omitempty"`
	Plan      string    `json:"plan"`
	Amount    int64     `json:"amount"`
	Error     string    `json:"error"`
	At        time.Time `json:"at"`
}

// Receipt is sent to the payer after a successful activation.
type Receipt struct {
	Email     string
	PlanName  string
	Amount    int64
	Reference string
	At        time.Time
}

// Notifier delivers operator alerts and payer receipts. Errors are for
// logging only.
type Notifier interface {
	PersistenceFailed(ctx context.Context, alert Alert) error
	SubscriptionActivated(ctx context.Context, receipt Receipt) error
}

// ==========================
// SNS
// ==========================

// SNSNotifier publishes reconciliation alerts to an SNS topic.
type SNSNotifier struct {
	publisher awsclients.Publisher
	topicARN  string
}

func NewSNSNotifier(publisher awsclients.Publisher, topicARN string) *SNSNotifier {
	return &SNSNotifier{publisher: publisher, topicARN: topicARN}
}

func (n *SNSNotifier) PersistenceFailed(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	_, err = n.publisher.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String("Payment verified but subscription not updated"),
		Message:  aws.String(string(payload)),
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}

func (n *SNSNotifier) SubscriptionActivated(context.Context, Receipt) error { return nil }

// ==========================
// SES
// ==========================

// SESNotifier emails a plain receipt to the payer.
type SESNotifier struct {
	sender    awsclients.EmailSender
	fromEmail string
}

func NewSESNotifier(sender awsclients.EmailSender, fromEmail string) *SESNotifier {
	return &SESNotifier{sender: sender, fromEmail: fromEmail}
}

func (n *SESNotifier) PersistenceFailed(context.Context, Alert) error { return nil }

func (n *SESNotifier) SubscriptionActivated(ctx context.Context, r Receipt) error {
	if r.Email == "" {
		return nil
	}
	body := fmt.Sprintf(
		"Your %s subscription is now active.\n\nAmount: %s\nReference: %s\nDate: %s\n",
		r.PlanName, FormatNaira(r.Amount), r.Reference, r.At.UTC().Format(time.RFC1123),
	)
	_, err := n.sender.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(n.fromEmail),
		Destination: &sestypes.Destination{ToAddresses: []string{r.Email}},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String("Payment receipt: " + r.PlanName)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}

// FormatNaira renders a kobo amount for humans.
func FormatNaira(kobo int64) string {
	sign := ""
	if kobo < 0 {
		sign = "-"
		kobo = -kobo
	}
	return fmt.Sprintf("%sNGN %d.%02d", sign, kobo/100, kobo%100)
}

// ==========================
// Composition
// ==========================

// MultiNotifier fans out to every notifier and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) PersistenceFailed(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.PersistenceFailed(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiNotifier) SubscriptionActivated(ctx context.Context, receipt Receipt) error {
	var errs []error
	for _, n := range m {
		if err := n.SubscriptionActivated(ctx, receipt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type NopNotifier struct{}

func (NopNotifier) PersistenceFailed(context.Context, Alert) error { return nil }

func (NopNotifier) SubscriptionActivated(context.Context, Receipt) error { return nil }
