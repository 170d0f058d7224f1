package domain

import "time"

// Purpose scopes an OTP to the flow that issued it. A code issued for one
// purpose can never satisfy a verification attempt for another.
type Purpose string

const (
	PurposeVerification  Purpose = "verification"
	PurposePasswordReset Purpose = "password_reset"
	PurposeLogin         Purpose = "login"
)

// Known reports whether p is one of the declared purposes.
func (p Purpose) Known() bool {
	switch p {
	case PurposeVerification, PurposePasswordReset, PurposeLogin:
		return true
	}
	return false
}

// OtpRecord is a single live passcode.
// PK: identity, SK: purpose — at most one live record per pair.
// ExpiresAt is a Unix timestamp and doubles as the DynamoDB TTL attribute.
type OtpRecord struct {
	Identity  string  `json:"identity" dynamodbav:"identity"`
	Purpose   Purpose `json:"purpose" dynamodbav:"purpose"`
	Code      string  `json:"code" dynamodbav:"code"`
	IssuedAt  int64   `json:"issued_at" dynamodbav:"issued_at"`
	ExpiresAt int64   `json:"expires_at" dynamodbav:"expires_at"`
}

// ExpiredAt reports whether the record is past its expiry at the given instant.
func (r *OtpRecord) ExpiredAt(now time.Time) bool {
	return now.Unix() > r.ExpiresAt
}

// Matches reports whether the candidate equals the stored code.
func (r *OtpRecord) Matches(candidate string) bool {
	return r.Code == candidate
}

// VerifyResult is the outcome of a single verification attempt.
type VerifyResult int

const (
	VerifyValid VerifyResult = iota
	VerifyInvalid
	VerifyExpired
	VerifyNotFound
)

func (v VerifyResult) String() string {
	switch v {
	case VerifyValid:
		return "valid"
	case VerifyInvalid:
		return "invalid"
	case VerifyExpired:
		return "expired"
	case VerifyNotFound:
		return "not_found"
	}
	return "unknown"
}

// OtpStats is a read-only aggregate over the OTP table.
type OtpStats struct {
	ActiveCount     int             `json:"active_count"`
	ExpiredCount    int             `json:"expired_count"`
	ActiveByPurpose map[Purpose]int `json:"active_by_purpose"`
}
