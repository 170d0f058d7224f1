package handler

import (
	"net/http"
	"time"

	otpapp "github.com/go-otp-api/internal/application/otp"
)

// OtpAdminHandler exposes the maintenance operations of the passcode store.
type OtpAdminHandler struct {
	svc otpapp.Service
}

func NewOtpAdminHandler(svc otpapp.Service) *OtpAdminHandler {
	return &OtpAdminHandler{svc: svc}
}

type sweepEnvelope struct {
	Removed int `json:"removed"`
}

func (h *OtpAdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context(), time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *OtpAdminHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.SweepExpired(r.Context(), time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sweepEnvelope{Removed: count})
}
