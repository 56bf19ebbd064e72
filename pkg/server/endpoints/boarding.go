package endpoints

import (
	"net/http"
	"time"

	"github.com/veripass/veripass/pkg/boarding"
	"github.com/veripass/veripass/pkg/config"
	"github.com/veripass/veripass/pkg/gateway"
	"github.com/veripass/veripass/pkg/model"
	"github.com/veripass/veripass/pkg/server"
)

// ScanGateRequest is the POST /boarding/scan-gate body.
type ScanGateRequest struct {
	Token string `json:"token"`
}

// ValidateRequest is the POST /boarding/validate body. live_photo is
// optional; when present the gate rechecks the face before consuming the
// pass.
type ValidateRequest struct {
	Token     string        `json:"token"`
	LivePhoto gateway.Image `json:"live_photo,omitempty"`
}

// PassSummary describes a boarding pass in API responses.
type PassSummary struct {
	PassID        string           `json:"pass_id"`
	ReservationID string           `json:"reservation_id"`
	Flight        string           `json:"flight"`
	Gate          string           `json:"gate,omitempty"`
	Seat          string           `json:"seat,omitempty"`
	BoardingGroup string           `json:"boarding_group,omitempty"`
	BoardingTime  time.Time        `json:"boarding_time"`
	Status        model.PassStatus `json:"status"`
	GateScannedAt *time.Time       `json:"gate_scanned_at,omitempty"`
	BoardedAt     *time.Time       `json:"boarded_at,omitempty"`
	ExpiresAt     *time.Time       `json:"expires_at,omitempty"`
}

// ScanGateResponse is the POST /boarding/scan-gate response. The identity
// summary comes from the signed token, for display at the gate.
type ScanGateResponse struct {
	Pass     PassSummary `json:"pass"`
	FullName string      `json:"full_name,omitempty"`
}

func passSummary(p *model.BoardingPass) PassSummary {
	return PassSummary{
		PassID:        p.ID,
		ReservationID: p.ReservationID,
		Flight:        p.Flight,
		Gate:          p.Gate,
		Seat:          p.Seat,
		BoardingGroup: p.BoardingGroup,
		BoardingTime:  p.BoardingTime,
		Status:        p.Status,
		GateScannedAt: p.GateScannedAt,
		BoardedAt:     p.BoardedAt,
		ExpiresAt:     p.ExpiresAt,
	}
}

func RegisterBoardingEndpoints(s *server.Server) {
	router := s.Router.PathPrefix("/boarding").Subrouter()
	router.Use(s.AgentMiddleware.Middleware)

	// POST /boarding/scan-gate - read-only gate scan
	router.HandleFunc("/scan-gate", handleScanGate(s.Boarding)).Methods("POST")

	// POST /boarding/validate - consume the pass
	router.HandleFunc("/validate", handleValidate(s.Boarding, s.Config)).Methods("POST")
}

func handleScanGate(validator *boarding.Validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ScanGateRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}

		result, err := validator.ScanGate(r.Context(), req.Token)
		if err != nil {
			respondWithFault(w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, ScanGateResponse{
			Pass:     passSummary(result.Pass),
			FullName: result.Payload.FullName,
		})
	}
}

func handleValidate(validator *boarding.Validator, cfg *config.VeripassConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ValidateRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}

		pass, err := validator.Validate(r.Context(), boarding.ValidateRequest{
			Token:     req.Token,
			LivePhoto: req.LivePhoto,
			ClientIP:  clientIP(r, cfg),
		})
		if err != nil {
			respondWithFault(w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, passSummary(pass))
	}
}
