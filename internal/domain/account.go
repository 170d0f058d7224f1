package domain

import "time"

// Account is a registered identity and its credential.
// PK: identity (the email the OTPs are delivered to).
type Account struct {
	Identity       string    `json:"identity" dynamodbav:"identity"`
	AccountID      string    `json:"id" dynamodbav:"account_id"`
	CredentialHash string    `json:"-" dynamodbav:"credential_hash"`
	Phone          *string   `json:"phone,omitempty" dynamodbav:"phone"`
	Verified       bool      `json:"verified" dynamodbav:"verified"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`
}

type RegisterRequest struct {
	Identity   string  `json:"identity" validate:"required,email"`
	Credential string  `json:"credential" validate:"required,min=8,max=72"`
	Phone      *string `json:"phone"`
}

type LoginRequest struct {
	Identity   string `json:"identity" validate:"required,email"`
	Credential string `json:"credential" validate:"required"`
}

type VerifyCodeRequest struct {
	Identity string `json:"identity" validate:"required,email"`
	Code     string `json:"code" validate:"required,numeric"`
}

type ResetInitiateRequest struct {
	Identity string `json:"identity" validate:"required,email"`
}

type ResetCompleteRequest struct {
	Identity      string `json:"identity" validate:"required,email"`
	Code          string `json:"code" validate:"required,numeric"`
	NewCredential string `json:"new_credential" validate:"required,min=8,max=72"`
}
