package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-otp-api/internal/application/flow"
	"github.com/go-otp-api/internal/domain"
	"github.com/go-otp-api/internal/pkg/validate"
)

// LoginHandler handles the verification-gated login endpoint.
type LoginHandler struct {
	svc flow.Service
}

func NewLoginHandler(svc flow.Service) *LoginHandler {
	return &LoginHandler{svc: svc}
}

func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeResult(w, h.svc.LoginGate(r.Context(), req))
}
