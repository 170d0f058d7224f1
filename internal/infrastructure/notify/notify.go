package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-otp-api/internal/domain"
	"github.com/go-otp-api/internal/infrastructure/smtp"
	"github.com/go-otp-api/internal/infrastructure/sns"
)

// Notifier delivers a passcode to an account out-of-band. The flow layer
// treats it as opaque: any returned error text becomes the delivery-failure
// reason surfaced to the caller.
type Notifier interface {
	Deliver(ctx context.Context, acct *domain.Account, code string, purpose domain.Purpose) error
}

// subjectFor maps a purpose to the email subject line.
func subjectFor(purpose domain.Purpose) string {
	switch purpose {
	case domain.PurposePasswordReset:
		return "Your password reset code"
	case domain.PurposeLogin:
		return "Your login code"
	default:
		return "Your verification code"
	}
}

// EmailNotifier delivers codes over SMTP to the account identity.
type EmailNotifier struct {
	mailer  smtp.Mailer
	timeout time.Duration
}

func NewEmailNotifier(mailer smtp.Mailer, timeout time.Duration) *EmailNotifier {
	return &EmailNotifier{mailer: mailer, timeout: timeout}
}

func (n *EmailNotifier) Deliver(ctx context.Context, acct *domain.Account, code string, purpose domain.Purpose) error {
	body := fmt.Sprintf("Your one-time code is: %s", code)
	return withTimeout(ctx, n.timeout, func() error {
		return n.mailer.SendEmail(acct.Identity, subjectFor(purpose), body)
	})
}

// SMSNotifier delivers codes over AWS SNS to the account phone number.
type SMSNotifier struct {
	sender  sns.SMSSender
	timeout time.Duration
}

func NewSMSNotifier(sender sns.SMSSender, timeout time.Duration) *SMSNotifier {
	return &SMSNotifier{sender: sender, timeout: timeout}
}

func (n *SMSNotifier) Deliver(ctx context.Context, acct *domain.Account, code string, purpose domain.Purpose) error {
	if acct.Phone == nil || *acct.Phone == "" {
		return fmt.Errorf("account %s has no phone number", acct.Identity)
	}
	msg := fmt.Sprintf("Your one-time code is: %s", code)
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	return n.sender.SendSMS(ctx, *acct.Phone, msg)
}

// withTimeout runs send in its own goroutine and bounds the wait. net/smtp has
// no context support, so a timed-out send is abandoned and reported as a
// delivery failure.
func withTimeout(ctx context.Context, timeout time.Duration, send func() error) error {
	done := make(chan error, 1)
	go func() { done <- send() }()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("delivery timed out after %s", timeout)
	case <-ctx.Done():
		return fmt.Errorf("delivery cancelled: %w", ctx.Err())
	}
}
