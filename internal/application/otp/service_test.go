package otp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-otp-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockStore struct{ mock.Mock }

func (m *mockStore) Put(ctx context.Context, rec *domain.OtpRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockStore) Get(ctx context.Context, identity string, purpose domain.Purpose) (*domain.OtpRecord, error) {
	args := m.Called(ctx, identity, purpose)
	if r, _ := args.Get(0).(*domain.OtpRecord); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) ConsumeIfCode(ctx context.Context, identity string, purpose domain.Purpose, code string, issuedAt int64) (bool, error) {
	args := m.Called(ctx, identity, purpose, code, issuedAt)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) DeleteIfExpiredBy(ctx context.Context, identity string, purpose domain.Purpose, now int64) (bool, error) {
	args := m.Called(ctx, identity, purpose, now)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) ScanAll(ctx context.Context) ([]domain.OtpRecord, error) {
	args := m.Called(ctx)
	if r, _ := args.Get(0).([]domain.OtpRecord); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func liveRecord(identity string, purpose domain.Purpose, code string, ttl time.Duration) *domain.OtpRecord {
	now := time.Now().UTC()
	return &domain.OtpRecord{
		Identity:  identity,
		Purpose:   purpose,
		Code:      code,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
}

// --- Issue ---

func TestIssue_WritesRecordWithTTL(t *testing.T) {
	st := &mockStore{}
	st.On("Put", mock.Anything, mock.MatchedBy(func(rec *domain.OtpRecord) bool {
		return rec.Identity == "a@x.com" &&
			rec.Purpose == domain.PurposeVerification &&
			rec.Code == "123456" &&
			rec.ExpiresAt-rec.IssuedAt == int64((10*time.Minute)/time.Second)
	})).Return(nil)

	svc := NewService(st)
	err := svc.Issue(context.Background(), "a@x.com", domain.PurposeVerification, "123456", 10*time.Minute)
	require.NoError(t, err)
	st.AssertExpectations(t)
}

func TestIssue_UnknownPurpose(t *testing.T) {
	svc := NewService(&mockStore{})
	err := svc.Issue(context.Background(), "a@x.com", domain.Purpose("magic_link"), "123456", time.Minute)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

// --- Verify ---

func TestVerify_NoRecord_NotFound(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "a@x.com", domain.PurposeVerification).
		Return(nil, domain.ErrNotFound)

	svc := NewService(st)
	res, err := svc.Verify(context.Background(), "a@x.com", domain.PurposeVerification, "123456")
	require.NoError(t, err)
	assert.Equal(t, domain.VerifyNotFound, res)
}

func TestVerify_CorrectCode_ValidAndConsumed(t *testing.T) {
	rec := liveRecord("a@x.com", domain.PurposeVerification, "123456", 9*time.Minute)
	st := &mockStore{}
	st.On("Get", mock.Anything, "a@x.com", domain.PurposeVerification).Return(rec, nil)
	st.On("ConsumeIfCode", mock.Anything, "a@x.com", domain.PurposeVerification, "123456", rec.IssuedAt).
		Return(true, nil)

	svc := NewService(st)
	res, err := svc.Verify(context.Background(), "a@x.com", domain.PurposeVerification, "123456")
	require.NoError(t, err)
	assert.Equal(t, domain.VerifyValid, res)
	st.AssertExpectations(t)
}

func TestVerify_WrongCode_InvalidAndRecordIntact(t *testing.T) {
	rec := liveRecord("a@x.com", domain.PurposeVerification, "123456", time.Minute)
	st := &mockStore{}
	st.On("Get", mock.Anything, "a@x.com", domain.PurposeVerification).Return(rec, nil)

	svc := NewService(st)
	res, err := svc.Verify(context.Background(), "a@x.com", domain.PurposeVerification, "999999")
	require.NoError(t, err)
	assert.Equal(t, domain.VerifyInvalid, res)
	// No lockout: the record must not be consumed or deleted on a mismatch.
	st.AssertNotCalled(t, "ConsumeIfCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	st.AssertNotCalled(t, "DeleteIfExpiredBy", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_ExpiredRecord_ExpiredAndDeleted(t *testing.T) {
	rec := liveRecord("b@x.com", domain.PurposePasswordReset, "000111", -time.Minute)
	st := &mockStore{}
	st.On("Get", mock.Anything, "b@x.com", domain.PurposePasswordReset).Return(rec, nil)
	st.On("DeleteIfExpiredBy", mock.Anything, "b@x.com", domain.PurposePasswordReset, mock.AnythingOfType("int64")).
		Return(true, nil)

	svc := NewService(st)
	res, err := svc.Verify(context.Background(), "b@x.com", domain.PurposePasswordReset, "000111")
	require.NoError(t, err)
	assert.Equal(t, domain.VerifyExpired, res)
	st.AssertExpectations(t)
}

func TestVerify_LostCompareAndDelete_NotFound(t *testing.T) {
	rec := liveRecord("a@x.com", domain.PurposeLogin, "123456", time.Minute)
	st := &mockStore{}
	st.On("Get", mock.Anything, "a@x.com", domain.PurposeLogin).Return(rec, nil)
	st.On("ConsumeIfCode", mock.Anything, "a@x.com", domain.PurposeLogin, "123456", rec.IssuedAt).
		Return(false, nil)

	svc := NewService(st)
	res, err := svc.Verify(context.Background(), "a@x.com", domain.PurposeLogin, "123456")
	require.NoError(t, err)
	assert.Equal(t, domain.VerifyNotFound, res)
}

func TestVerify_StoreFault_ReturnsError(t *testing.T) {
	st := &mockStore{}
	st.On("Get", mock.Anything, "a@x.com", domain.PurposeVerification).
		Return(nil, errors.New("connection reset"))

	svc := NewService(st)
	_, err := svc.Verify(context.Background(), "a@x.com", domain.PurposeVerification, "123456")
	assert.ErrorContains(t, err, "connection reset")
}

// --- SweepExpired ---

func TestSweepExpired_DeletesOnlyExpired(t *testing.T) {
	now := time.Now().UTC()
	records := []domain.OtpRecord{
		{Identity: "a@x.com", Purpose: domain.PurposeVerification, Code: "111111", ExpiresAt: now.Add(-time.Hour).Unix()},
		{Identity: "b@x.com", Purpose: domain.PurposePasswordReset, Code: "222222", ExpiresAt: now.Add(-time.Minute).Unix()},
		{Identity: "c@x.com", Purpose: domain.PurposeVerification, Code: "333333", ExpiresAt: now.Add(time.Hour).Unix()},
	}
	st := &mockStore{}
	st.On("ScanAll", mock.Anything).Return(records, nil)
	st.On("DeleteIfExpiredBy", mock.Anything, "a@x.com", domain.PurposeVerification, now.Unix()).Return(true, nil)
	st.On("DeleteIfExpiredBy", mock.Anything, "b@x.com", domain.PurposePasswordReset, now.Unix()).Return(true, nil)

	svc := NewService(st)
	count, err := svc.SweepExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	st.AssertNotCalled(t, "DeleteIfExpiredBy", mock.Anything, "c@x.com", mock.Anything, mock.Anything)
}

func TestSweepExpired_SkipsRecordsReissuedMidSweep(t *testing.T) {
	now := time.Now().UTC()
	records := []domain.OtpRecord{
		{Identity: "a@x.com", Purpose: domain.PurposeVerification, Code: "111111", ExpiresAt: now.Add(-time.Hour).Unix()},
	}
	st := &mockStore{}
	st.On("ScanAll", mock.Anything).Return(records, nil)
	// The conditional delete fails: the record was reissued after the scan.
	st.On("DeleteIfExpiredBy", mock.Anything, "a@x.com", domain.PurposeVerification, now.Unix()).Return(false, nil)

	svc := NewService(st)
	count, err := svc.SweepExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

// --- Stats ---

func TestStats_Aggregates(t *testing.T) {
	now := time.Now().UTC()
	records := []domain.OtpRecord{
		{Identity: "a@x.com", Purpose: domain.PurposeVerification, ExpiresAt: now.Add(time.Hour).Unix()},
		{Identity: "b@x.com", Purpose: domain.PurposeVerification, ExpiresAt: now.Add(time.Hour).Unix()},
		{Identity: "c@x.com", Purpose: domain.PurposePasswordReset, ExpiresAt: now.Add(time.Hour).Unix()},
		{Identity: "d@x.com", Purpose: domain.PurposeLogin, ExpiresAt: now.Add(-time.Hour).Unix()},
	}
	st := &mockStore{}
	st.On("ScanAll", mock.Anything).Return(records, nil)

	svc := NewService(st)
	stats, err := svc.Stats(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.ActiveCount)
	assert.Equal(t, 1, stats.ExpiredCount)
	assert.Equal(t, 2, stats.ActiveByPurpose[domain.PurposeVerification])
	assert.Equal(t, 1, stats.ActiveByPurpose[domain.PurposePasswordReset])
	assert.Equal(t, 0, stats.ActiveByPurpose[domain.PurposeLogin])
}
