package endpoints

import (
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veripass/veripass/pkg/server"
	"github.com/veripass/veripass/pkg/server/store"
)

// StatusResponse is the GET / response.
type StatusResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// RegisterStatusEndpoints registers the status and metrics endpoints. Both
// are unauthenticated; they sit behind the deployment's internal load
// balancer.
func RegisterStatusEndpoints(s *server.Server) {
	// GET / - Status page
	s.Router.HandleFunc("/", handleStatus(s.HealthStore)).Methods("GET")

	// GET /metrics - Prometheus metrics
	s.Router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

func handleStatus(healthStore store.HealthStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := os.Getenv("VERIPASS_VERSION_DISPLAY")
		if version == "" {
			version = "0.1.0"
		}

		resp := StatusResponse{
			Status:   "ok",
			Version:  version,
			Database: "ok",
		}

		code := http.StatusOK
		if err := healthStore.CheckConnectivity(); err != nil {
			resp.Status = "error"
			resp.Database = "unreachable"
			code = http.StatusServiceUnavailable
		}

		respondWithJSON(w, code, resp)
	}
}
