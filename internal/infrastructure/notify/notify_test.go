package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-otp-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	to, subject, body string
	err               error
	delay             time.Duration
}

func (f *fakeMailer) SendEmail(to, subject, body string) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.to, f.subject, f.body = to, subject, body
	return f.err
}

func TestEmailNotifier_SendsToIdentity(t *testing.T) {
	m := &fakeMailer{}
	n := NewEmailNotifier(m, time.Second)
	acct := &domain.Account{Identity: "alice@example.com"}

	require.NoError(t, n.Deliver(context.Background(), acct, "123456", domain.PurposeVerification))
	assert.Equal(t, "alice@example.com", m.to)
	assert.Equal(t, "Your verification code", m.subject)
	assert.Contains(t, m.body, "123456")
}

func TestEmailNotifier_SubjectPerPurpose(t *testing.T) {
	m := &fakeMailer{}
	n := NewEmailNotifier(m, time.Second)
	acct := &domain.Account{Identity: "alice@example.com"}

	require.NoError(t, n.Deliver(context.Background(), acct, "123456", domain.PurposePasswordReset))
	assert.Equal(t, "Your password reset code", m.subject)

	require.NoError(t, n.Deliver(context.Background(), acct, "123456", domain.PurposeLogin))
	assert.Equal(t, "Your login code", m.subject)
}

func TestEmailNotifier_PropagatesSendError(t *testing.T) {
	m := &fakeMailer{err: errors.New("smtp down")}
	n := NewEmailNotifier(m, time.Second)
	acct := &domain.Account{Identity: "alice@example.com"}

	err := n.Deliver(context.Background(), acct, "123456", domain.PurposeVerification)
	assert.ErrorContains(t, err, "smtp down")
}

func TestEmailNotifier_TimesOutSlowSend(t *testing.T) {
	m := &fakeMailer{delay: 200 * time.Millisecond}
	n := NewEmailNotifier(m, 20*time.Millisecond)
	acct := &domain.Account{Identity: "alice@example.com"}

	err := n.Deliver(context.Background(), acct, "123456", domain.PurposeVerification)
	assert.ErrorContains(t, err, "timed out")
}

func TestEmailNotifier_CancelledContext(t *testing.T) {
	m := &fakeMailer{delay: 200 * time.Millisecond}
	n := NewEmailNotifier(m, time.Second)
	acct := &domain.Account{Identity: "alice@example.com"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := n.Deliver(ctx, acct, "123456", domain.PurposeVerification)
	assert.ErrorContains(t, err, "cancelled")
}

type fakeSMSSender struct {
	to, msg string
	err     error
}

func (f *fakeSMSSender) SendSMS(ctx context.Context, to, message string) error {
	f.to, f.msg = to, message
	return f.err
}

func TestSMSNotifier_RequiresPhone(t *testing.T) {
	n := NewSMSNotifier(&fakeSMSSender{}, time.Second)
	acct := &domain.Account{Identity: "alice@example.com"}

	err := n.Deliver(context.Background(), acct, "123456", domain.PurposeVerification)
	assert.ErrorContains(t, err, "no phone number")
}

func TestSMSNotifier_SendsToPhone(t *testing.T) {
	f := &fakeSMSSender{}
	n := NewSMSNotifier(f, time.Second)
	phone := "+15550001111"
	acct := &domain.Account{Identity: "alice@example.com", Phone: &phone}

	require.NoError(t, n.Deliver(context.Background(), acct, "654321", domain.PurposeVerification))
	assert.Equal(t, phone, f.to)
	assert.Contains(t, f.msg, "654321")
}
