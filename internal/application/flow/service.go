package flow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-otp-api/internal/domain"
	"github.com/go-otp-api/internal/pkg/id"
	pkgotp "github.com/go-otp-api/internal/pkg/otp"
	"golang.org/x/crypto/bcrypt"
)

// accountStore is the account contract the flows need. The DynamoDB repo
// satisfies it; tests substitute a mock.
type accountStore interface {
	Exists(ctx context.Context, identity string) (bool, error)
	Create(ctx context.Context, a *domain.Account) error
	Get(ctx context.Context, identity string) (*domain.Account, error)
	SetVerified(ctx context.Context, identity string, verified bool) error
	UpdateCredential(ctx context.Context, identity, credentialHash string) error
	Delete(ctx context.Context, identity string) error
}

// otpEngine is the slice of the OTP service the flows consume.
type otpEngine interface {
	Issue(ctx context.Context, identity string, purpose domain.Purpose, code string, ttl time.Duration) error
	Verify(ctx context.Context, identity string, purpose domain.Purpose, candidate string) (domain.VerifyResult, error)
}

type notifier interface {
	Deliver(ctx context.Context, acct *domain.Account, code string, purpose domain.Purpose) error
}

type jwtSigner interface {
	Sign(identity, accountID string) (string, error)
}

// Service orchestrates the three passcode-gated workflows.
type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) Result
	LoginGate(ctx context.Context, req domain.LoginRequest) Result
	CompleteVerification(ctx context.Context, req domain.VerifyCodeRequest) Result
	InitiatePasswordReset(ctx context.Context, req domain.ResetInitiateRequest) Result
	CompletePasswordReset(ctx context.Context, req domain.ResetCompleteRequest) Result
}

type service struct {
	accounts         accountStore
	otp              otpEngine
	notifier         notifier
	jwtProvider      jwtSigner
	otpLength        int
	verificationTTL  time.Duration
	passwordResetTTL time.Duration
}

type ServiceDeps struct {
	AccountRepo      accountStore
	OtpService       otpEngine
	Notifier         notifier
	JWTProvider      jwtSigner // optional; no bearer tokens are issued when nil
	OTPLength        int
	VerificationTTL  time.Duration
	PasswordResetTTL time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		accounts:         deps.AccountRepo,
		otp:              deps.OtpService,
		notifier:         deps.Notifier,
		jwtProvider:      deps.JWTProvider,
		otpLength:        deps.OTPLength,
		verificationTTL:  deps.VerificationTTL,
		passwordResetTTL: deps.PasswordResetTTL,
	}
}

// Register creates an unverified account and sends it a verification code.
// If delivery fails the account is deleted again, so no unverified account is
// left stranded with no way to receive a code.
func (s *service) Register(ctx context.Context, req domain.RegisterRequest) Result {
	exists, err := s.accounts.Exists(ctx, req.Identity)
	if err != nil {
		return failure(InternalFailure, "could not check identity: "+err.Error())
	}
	if exists {
		return failure(AlreadyRegistered, "identity is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Credential), bcrypt.DefaultCost)
	if err != nil {
		return failure(InternalFailure, "could not hash credential: "+err.Error())
	}
	now := time.Now().UTC()
	acct := &domain.Account{
		Identity:       req.Identity,
		AccountID:      id.New(),
		CredentialHash: string(hash),
		Phone:          req.Phone,
		Verified:       false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.accounts.Create(ctx, acct); err != nil {
		// The conditional insert also closes the window between the existence
		// check above and the write.
		if errors.Is(err, domain.ErrConflict) {
			return failure(AlreadyRegistered, "identity is already registered")
		}
		return failure(AccountCreationFailed, "could not create account: "+err.Error())
	}

	if res, ok := s.issueAndDeliver(ctx, acct, domain.PurposeVerification, s.verificationTTL, true); !ok {
		return res
	}
	r := success("account created, verification code sent")
	r.OTPSent = true
	return r
}

// LoginGate authenticates the credential and, for unverified accounts,
// reissues a verification code. Delivery failure here is reported as sent
// anyway and only logged: the account already exists and can re-request a
// code, so there is nothing to roll back.
func (s *service) LoginGate(ctx context.Context, req domain.LoginRequest) Result {
	acct, err := s.accounts.Get(ctx, req.Identity)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return failure(InvalidCredentials, "invalid credentials")
		}
		return failure(InternalFailure, "could not load account: "+err.Error())
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.CredentialHash), []byte(req.Credential)); err != nil {
		return failure(InvalidCredentials, "invalid credentials")
	}

	if acct.Verified {
		r := success("login successful")
		r.Verified = true
		r.Bearer = s.sign(acct)
		return r
	}

	code, err := pkgotp.Generate(s.otpLength)
	if err != nil {
		return failure(InternalFailure, "could not generate code: "+err.Error())
	}
	if err := s.otp.Issue(ctx, acct.Identity, domain.PurposeVerification, code, s.verificationTTL); err != nil {
		return failure(InternalFailure, "could not issue code: "+err.Error())
	}
	if err := s.notifier.Deliver(ctx, acct, code, domain.PurposeVerification); err != nil {
		slog.Warn("login-gate delivery failed", "identity", acct.Identity, "err", err)
	}
	r := success("account not verified, verification code sent")
	r.Verified = false
	r.OTPSent = true
	return r
}

// CompleteVerification consumes a verification code and marks the account
// verified.
func (s *service) CompleteVerification(ctx context.Context, req domain.VerifyCodeRequest) Result {
	res, err := s.otp.Verify(ctx, req.Identity, domain.PurposeVerification, req.Code)
	if err != nil {
		return failure(InternalFailure, "could not verify code: "+err.Error())
	}
	if res != domain.VerifyValid {
		return verifyFailure(res)
	}
	if err := s.accounts.SetVerified(ctx, req.Identity, true); err != nil {
		return failure(InternalFailure, "could not mark account verified: "+err.Error())
	}
	acct, err := s.accounts.Get(ctx, req.Identity)
	if err != nil {
		return failure(InternalFailure, "could not load account: "+err.Error())
	}
	r := success("account verified")
	r.Verified = true
	r.Bearer = s.sign(acct)
	return r
}

// InitiatePasswordReset issues a reset code to a known identity. No account
// state changes here, so a delivery failure needs no compensation and is
// reported transparently.
func (s *service) InitiatePasswordReset(ctx context.Context, req domain.ResetInitiateRequest) Result {
	acct, err := s.accounts.Get(ctx, req.Identity)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return failure(UnknownIdentity, "unknown identity")
		}
		return failure(InternalFailure, "could not load account: "+err.Error())
	}

	if res, ok := s.issueAndDeliver(ctx, acct, domain.PurposePasswordReset, s.passwordResetTTL, false); !ok {
		return res
	}
	r := success("password reset code sent")
	r.OTPSent = true
	return r
}

// CompletePasswordReset consumes a reset code and replaces the credential.
// The code is consumed before the credential write; if that write then fails
// the user must request a fresh code — a known gap, kept as-is.
func (s *service) CompletePasswordReset(ctx context.Context, req domain.ResetCompleteRequest) Result {
	res, err := s.otp.Verify(ctx, req.Identity, domain.PurposePasswordReset, req.Code)
	if err != nil {
		return failure(InternalFailure, "could not verify code: "+err.Error())
	}
	if res != domain.VerifyValid {
		return verifyFailure(res)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewCredential), bcrypt.DefaultCost)
	if err != nil {
		return failure(InternalFailure, "could not hash credential: "+err.Error())
	}
	if err := s.accounts.UpdateCredential(ctx, req.Identity, string(hash)); err != nil {
		return failure(CredentialUpdateFailed, "could not update credential: "+err.Error())
	}
	return success("password updated")
}

// issueAndDeliver generates a code, stores it under the purpose and delivers
// it. When rollback is set, a delivery failure deletes the account (used by
// Register, where the account was created in the same flow).
func (s *service) issueAndDeliver(ctx context.Context, acct *domain.Account, purpose domain.Purpose, ttl time.Duration, rollback bool) (Result, bool) {
	code, err := pkgotp.Generate(s.otpLength)
	if err != nil {
		s.maybeRollback(ctx, acct.Identity, rollback)
		return failure(InternalFailure, "could not generate code: "+err.Error()), false
	}
	if err := s.otp.Issue(ctx, acct.Identity, purpose, code, ttl); err != nil {
		s.maybeRollback(ctx, acct.Identity, rollback)
		return failure(InternalFailure, "could not issue code: "+err.Error()), false
	}
	if err := s.notifier.Deliver(ctx, acct, code, purpose); err != nil {
		s.maybeRollback(ctx, acct.Identity, rollback)
		return failure(DeliveryFailed, "could not deliver code: "+err.Error()), false
	}
	return Result{}, true
}

func (s *service) maybeRollback(ctx context.Context, identity string, rollback bool) {
	if !rollback {
		return
	}
	if err := s.accounts.Delete(ctx, identity); err != nil {
		slog.Warn("registration rollback failed", "identity", identity, "err", err)
	}
}

func (s *service) sign(acct *domain.Account) string {
	if s.jwtProvider == nil {
		return ""
	}
	bearer, err := s.jwtProvider.Sign(acct.Identity, acct.AccountID)
	if err != nil {
		slog.Warn("could not sign bearer token", "identity", acct.Identity, "err", err)
		return ""
	}
	return bearer
}

// verifyFailure maps a non-valid verification outcome to its result kind.
func verifyFailure(res domain.VerifyResult) Result {
	switch res {
	case domain.VerifyExpired:
		return failure(CodeExpired, "code has expired, request a new one")
	case domain.VerifyNotFound:
		return failure(CodeNotFound, "no code found, request a new one")
	default:
		return failure(CodeInvalid, "code is incorrect")
	}
}
