package endpoints

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/veripass/veripass/pkg/boarding"
	"github.com/veripass/veripass/pkg/config"
	"github.com/veripass/veripass/pkg/identity"
	"github.com/veripass/veripass/pkg/server"
	"github.com/veripass/veripass/pkg/server/store"
)

func RegisterPassesEndpoints(s *server.Server) {
	router := s.Router.PathPrefix("/passes").Subrouter()
	router.Use(s.AgentMiddleware.Middleware)

	// GET /passes/{id} - fetch a boarding pass
	router.HandleFunc("/{id}", handleFetchPass(s.PassesStore)).Methods("GET")

	// POST /passes/{id}/cancel - cancel an issued pass
	router.HandleFunc("/{id}/cancel", handleCancelPass(s.Boarding, s.Config)).Methods("POST")
}

func handleFetchPass(passes store.PassesStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		pass, err := passes.FetchPass(id)
		if err != nil {
			if errors.Is(err, store.ErrPassNotFound) {
				respondWithError(w, http.StatusNotFound, map[string]string{"message": "boarding pass not found"})
				return
			}
			respondWithError(w, http.StatusInternalServerError, map[string]string{"message": "failed to fetch boarding pass"})
			return
		}

		respondWithJSON(w, http.StatusOK, passSummary(pass))
	}
}

func handleCancelPass(validator *boarding.Validator, cfg *config.VeripassConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		agent, _ := identity.Get(r.Context())
		if agent == nil || !agent.CanOverride() {
			respondWithError(w, http.StatusForbidden, map[string]string{"message": "cancellation requires agent role"})
			return
		}

		if err := validator.Cancel(id, agent.ID, clientIP(r, cfg)); err != nil {
			respondWithFault(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
