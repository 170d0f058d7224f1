package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-otp-api/internal/application/flow"
	"github.com/go-otp-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestLogin_InvalidBody(t *testing.T) {
	svc := &mockFlowSvc{}
	h := NewLoginHandler(svc)
	r := httptest.NewRequest(http.MethodPost, "/v1/login", bytes.NewBufferString("{"))
	rr := httptest.NewRecorder()
	h.Login(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "LoginGate")
}

func TestLogin_VerifiedAccount_ReturnsBearer(t *testing.T) {
	svc := &mockFlowSvc{}
	svc.On("LoginGate", mock.Anything, mock.Anything).
		Return(flow.Result{Success: true, Message: "login successful", Verified: true, Bearer: "tok"})
	h := NewLoginHandler(svc)
	r := postJSON(t, "/v1/login", domain.LoginRequest{Identity: "alice@example.com", Credential: "secret123"})
	rr := httptest.NewRecorder()
	h.Login(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.True(t, env.Verified)
	assert.Equal(t, "tok", env.Bearer)
	svc.AssertExpectations(t)
}

func TestLogin_UnverifiedAccount_CodeSent(t *testing.T) {
	svc := &mockFlowSvc{}
	svc.On("LoginGate", mock.Anything, mock.Anything).
		Return(flow.Result{Success: true, Message: "account not verified, verification code sent", OTPSent: true})
	h := NewLoginHandler(svc)
	r := postJSON(t, "/v1/login", domain.LoginRequest{Identity: "alice@example.com", Credential: "secret123"})
	rr := httptest.NewRecorder()
	h.Login(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.False(t, env.Verified)
	assert.True(t, env.OTPSent)
	assert.Empty(t, env.Bearer)
	svc.AssertExpectations(t)
}

func TestLogin_BadCredentials_Unauthorized(t *testing.T) {
	svc := &mockFlowSvc{}
	svc.On("LoginGate", mock.Anything, mock.Anything).
		Return(flow.Result{Kind: flow.InvalidCredentials, Message: "invalid credentials"})
	h := NewLoginHandler(svc)
	r := postJSON(t, "/v1/login", domain.LoginRequest{Identity: "alice@example.com", Credential: "wrongpass"})
	rr := httptest.NewRecorder()
	h.Login(rr, r)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	svc.AssertExpectations(t)
}
