package authhttp

import (
	"encoding/json"
	"net/http"

	"github.com/open-rails/otpkit/core"
)

type failResp struct {
	OK    bool      `json:"ok"`
	Error core.Kind `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sendFail(w http.ResponseWriter, kind core.Kind) {
	writeJSON(w, statusForKind(kind), failResp{OK: false, Error: kind})
}

func statusForKind(kind core.Kind) int {
	switch kind {
	case core.KindInvalidPhone:
		return http.StatusBadRequest
	case core.KindCooldownActive, core.KindRateLimited:
		return http.StatusTooManyRequests
	case core.KindDeliveryFailed:
		return http.StatusBadGateway
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindExpired:
		return http.StatusGone
	case core.KindTokenMismatch, core.KindCodeMismatch:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func serverErr(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "INTERNAL"})
}

func badRequest(w http.ResponseWriter) { sendFail(w, core.KindInvalidPhone) }
func tooMany(w http.ResponseWriter)    { sendFail(w, core.KindRateLimited) }
