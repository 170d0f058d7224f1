package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-otp-api/internal/application/flow"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// FlowEnvelope wraps the outcome of a flow operation.
type FlowEnvelope struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message"`
	Kind     flow.FailureKind `json:"kind,omitempty"`
	OTPSent  bool             `json:"otp_sent,omitempty"`
	Verified bool             `json:"verified,omitempty"`
	Bearer   string           `json:"bearer,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// writeResult converts a flow result into its HTTP representation.
func writeResult(w http.ResponseWriter, res flow.Result) {
	writeJSON(w, statusFor(res), FlowEnvelope{
		Success:  res.Success,
		Message:  res.Message,
		Kind:     res.Kind,
		OTPSent:  res.OTPSent,
		Verified: res.Verified,
		Bearer:   res.Bearer,
	})
}

func statusFor(res flow.Result) int {
	if res.Success {
		return http.StatusOK
	}
	switch res.Kind {
	case flow.AlreadyRegistered:
		return http.StatusConflict
	case flow.InvalidCredentials, flow.CodeInvalid:
		return http.StatusUnauthorized
	case flow.UnknownIdentity, flow.CodeNotFound:
		return http.StatusNotFound
	case flow.CodeExpired:
		return http.StatusGone
	case flow.DeliveryFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
