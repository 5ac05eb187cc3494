package http

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeRaw relays an upstream JSON body unchanged.
func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeFailure writes {success:false, message} plus any debug fields.
func writeFailure(w http.ResponseWriter, status int, message string, debug map[string]any) {
	payload := map[string]any{"success": false, "message": message}
	for k, v := range debug {
		payload[k] = v
	}
	writeJSON(w, status, payload)
}

func logError(log *zap.Logger, msg string, r *http.Request, err error) {
	if log == nil {
		return
	}
	log.Error(msg, zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
}
