package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-otp-api/internal/domain"
)

// otpStore is the storage contract the engine needs. The DynamoDB repo
// satisfies it; tests substitute a mock.
type otpStore interface {
	Put(ctx context.Context, rec *domain.OtpRecord) error
	Get(ctx context.Context, identity string, purpose domain.Purpose) (*domain.OtpRecord, error)
	ConsumeIfCode(ctx context.Context, identity string, purpose domain.Purpose, code string, issuedAt int64) (bool, error)
	DeleteIfExpiredBy(ctx context.Context, identity string, purpose domain.Purpose, now int64) (bool, error)
	ScanAll(ctx context.Context) ([]domain.OtpRecord, error)
}

// Service is the passcode lifecycle engine: issue, verify-and-consume,
// sweep, stats.
type Service interface {
	Issue(ctx context.Context, identity string, purpose domain.Purpose, code string, ttl time.Duration) error
	Verify(ctx context.Context, identity string, purpose domain.Purpose, candidate string) (domain.VerifyResult, error)
	SweepExpired(ctx context.Context, now time.Time) (int, error)
	Stats(ctx context.Context, now time.Time) (*domain.OtpStats, error)
}

type service struct {
	store otpStore
}

func NewService(store otpStore) Service {
	return &service{store: store}
}

// Issue writes a fresh record for (identity, purpose). The store's put
// replaces any live record for the key in one atomic write, so at most one
// code per pair is ever live.
func (s *service) Issue(ctx context.Context, identity string, purpose domain.Purpose, code string, ttl time.Duration) error {
	if !purpose.Known() {
		return fmt.Errorf("unknown purpose %q: %w", purpose, domain.ErrBadRequest)
	}
	now := time.Now().UTC()
	rec := &domain.OtpRecord{
		Identity:  identity,
		Purpose:   purpose,
		Code:      code,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
	return s.store.Put(ctx, rec)
}

// Verify checks the candidate against the live record for (identity, purpose).
//
//	no record        → NotFound
//	past expiry      → Expired (the record is eagerly deleted)
//	wrong code       → Invalid (the record stays usable until expiry)
//	match            → Valid, the record is consumed; a concurrent attempt
//	                   that loses the compare-and-delete sees NotFound
//
// A returned error means an infrastructure fault, not a verification outcome.
func (s *service) Verify(ctx context.Context, identity string, purpose domain.Purpose, candidate string) (domain.VerifyResult, error) {
	rec, err := s.store.Get(ctx, identity, purpose)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.VerifyNotFound, nil
		}
		return domain.VerifyNotFound, err
	}

	now := time.Now().UTC()
	if rec.ExpiredAt(now) {
		if _, err := s.store.DeleteIfExpiredBy(ctx, identity, purpose, now.Unix()); err != nil {
			slog.Warn("failed to delete expired otp record", "identity", identity, "purpose", purpose, "err", err)
		}
		return domain.VerifyExpired, nil
	}

	if !rec.Matches(candidate) {
		return domain.VerifyInvalid, nil
	}

	consumed, err := s.store.ConsumeIfCode(ctx, identity, purpose, rec.Code, rec.IssuedAt)
	if err != nil {
		return domain.VerifyNotFound, err
	}
	if !consumed {
		// Lost the compare-and-delete: another attempt consumed the code or a
		// reissue replaced it between our read and the delete.
		return domain.VerifyNotFound, nil
	}
	return domain.VerifyValid, nil
}

// SweepExpired deletes every record whose expiry is before now and returns
// the number removed. Each delete re-checks expiry at execution time, so a
// record reissued mid-sweep is never lost. Purely maintenance — Verify is
// correct without it.
func (s *service) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	records, err := s.store.ScanAll(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for i := range records {
		rec := &records[i]
		if !rec.ExpiredAt(now) {
			continue
		}
		deleted, err := s.store.DeleteIfExpiredBy(ctx, rec.Identity, rec.Purpose, now.Unix())
		if err != nil {
			slog.Warn("sweep: failed to delete otp record", "identity", rec.Identity, "purpose", rec.Purpose, "err", err)
			continue
		}
		if deleted {
			count++
		}
	}
	return count, nil
}

// Stats returns a read-only aggregate of live and expired records at now.
func (s *service) Stats(ctx context.Context, now time.Time) (*domain.OtpStats, error) {
	records, err := s.store.ScanAll(ctx)
	if err != nil {
		return nil, err
	}
	stats := &domain.OtpStats{ActiveByPurpose: map[domain.Purpose]int{}}
	for i := range records {
		if records[i].ExpiredAt(now) {
			stats.ExpiredCount++
			continue
		}
		stats.ActiveCount++
		stats.ActiveByPurpose[records[i].Purpose]++
	}
	return stats, nil
}
