package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-otp-api/internal/application/flow"
	"github.com/go-otp-api/internal/domain"
	"github.com/go-otp-api/internal/pkg/validate"
)

// PasswordRecoveryHandler handles the password reset flow endpoints.
type PasswordRecoveryHandler struct {
	svc flow.Service
}

func NewPasswordRecoveryHandler(svc flow.Service) *PasswordRecoveryHandler {
	return &PasswordRecoveryHandler{svc: svc}
}

func (h *PasswordRecoveryHandler) Action(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "request":
		var req domain.ResetInitiateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(&req); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeResult(w, h.svc.InitiatePasswordReset(r.Context(), req))
	case "complete":
		var req domain.ResetCompleteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(&req); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeResult(w, h.svc.CompletePasswordReset(r.Context(), req))
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
