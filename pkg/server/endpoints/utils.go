package endpoints

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/veripass/veripass/pkg/config"
	"github.com/veripass/veripass/pkg/faults"
)

func respondWithError(w http.ResponseWriter, code int, payload interface{}) {
	respondWithJSON(w, code, map[string]interface{}{"error": payload})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// respondWithFault maps a classified pipeline error onto an HTTP status and
// a stable error body: {"error": {"kind": ..., "message": ...}}. Internal
// details never leave the process; faults.Reason is the safe message.
func respondWithFault(w http.ResponseWriter, err error) {
	respondWithError(w, faultStatus(err), map[string]string{
		"kind":    string(faults.KindOf(err)),
		"message": faults.Reason(err),
	})
}

func faultStatus(err error) int {
	switch faults.KindOf(err) {
	case faults.InputInvalid:
		return http.StatusBadRequest
	case faults.ThresholdNotMet:
		return http.StatusUnprocessableEntity
	case faults.CredentialInvalid:
		return http.StatusUnauthorized
	case faults.StateConflict:
		return http.StatusConflict
	case faults.NotFound:
		return http.StatusNotFound
	case faults.ProviderTimeout:
		return http.StatusGatewayTimeout
	case faults.ProviderUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// clientIP resolves the caller address. X-Forwarded-For is honored only
// when the direct peer is a configured trusted proxy; otherwise a client
// could spoof its way into the audit trail.
func clientIP(r *http.Request, cfg *config.VeripassConfig) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" || cfg == nil || !cfg.IsTrustedProxy(host) {
		return host
	}

	// Leftmost entry is the originating client.
	parts := strings.Split(forwarded, ",")
	return strings.TrimSpace(parts[0])
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer func() { _ = r.Body.Close() }()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON body"})
		return false
	}
	return true
}
