package server

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/veripass/veripass/pkg/boarding"
	"github.com/veripass/veripass/pkg/checkin"
	"github.com/veripass/veripass/pkg/config"
	"github.com/veripass/veripass/pkg/credential"
	"github.com/veripass/veripass/pkg/enrollment"
	"github.com/veripass/veripass/pkg/gateway"
	"github.com/veripass/veripass/pkg/metrics"
	"github.com/veripass/veripass/pkg/server/middleware"
	"github.com/veripass/veripass/pkg/server/store"
	"github.com/veripass/veripass/pkg/vault"
)

// Server is the HTTP API surface: enrollment, check-in, boarding, pass
// lookup, and status.
type Server struct {
	Vault   *vault.Vault
	Codec   *credential.Codec
	Gateway *gateway.Gateway
	Router  *mux.Router
	DB      *gorm.DB
	Config  *config.VeripassConfig
	Metrics *metrics.Metrics

	EnrollmentsStore store.EnrollmentsStore
	PassesStore      store.PassesStore
	CheckInLogsStore store.CheckInLogsStore
	HealthStore      store.HealthStore

	Enroller *enrollment.Orchestrator
	CheckIn  *checkin.Machine
	Boarding *boarding.Validator

	AgentMiddleware *middleware.AgentAuthenticator

	srv *http.Server
}

func NewServer(
	v *vault.Vault,
	codec *credential.Codec,
	g *gateway.Gateway,
	db *gorm.DB,
	cfg *config.VeripassConfig,
	m *metrics.Metrics,
	enrollments store.EnrollmentsStore,
	passes store.PassesStore,
	logs store.CheckInLogsStore,
	health store.HealthStore,
	agentSecret []byte,
	host string,
	port string,
) *Server {

	router := mux.NewRouter().UseEncodedPath()
	srv := &http.Server{
		Handler:      handlers.LoggingHandler(os.Stdout, router),
		Addr:         host + ":" + port,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	return &Server{
		Vault:            v,
		Codec:            codec,
		Gateway:          g,
		Router:           router,
		DB:               db,
		Config:           cfg,
		Metrics:          m,
		EnrollmentsStore: enrollments,
		PassesStore:      passes,
		CheckInLogsStore: logs,
		HealthStore:      health,
		Enroller:         enrollment.New(g, v, codec, enrollments, cfg, m),
		CheckIn:          checkin.New(g, v, codec, enrollments, passes, logs, cfg, m),
		Boarding:         boarding.New(g, v, codec, enrollments, passes, cfg, m),
		AgentMiddleware:  middleware.NewAgentAuthenticator(agentSecret),
		srv:              srv,
	}
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown drains in-flight requests before stopping.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
