package endpoints

import (
	"github.com/veripass/veripass/pkg/server"
)

// RegisterAll registers all API endpoints on the server
func RegisterAll(srv *server.Server) {
	RegisterEnrollmentsEndpoints(srv)
	RegisterCheckInsEndpoints(srv)
	RegisterBoardingEndpoints(srv)
	RegisterPassesEndpoints(srv)
	RegisterStatusEndpoints(srv)
}
