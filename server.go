package main

import (
	"io"
	"net/http"

	"github.com/trafficlens/speedcam/internal/api"
	"github.com/trafficlens/speedcam/internal/db"
)

// buildMux assembles the full HTTP surface: the API routes, the admin
// debug routes over the database, and a root landing page.
func buildMux(database *db.DB, apiServer *api.Server) (*http.ServeMux, error) {
	mux := http.NewServeMux()

	if err := database.AttachAdminRoutes(mux); err != nil {
		return nil, err
	}

	apiMux := apiServer.ServeMux()
	mux.Handle("/api/", apiMux)

	mux.HandleFunc("/{$}", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "speedcam: vehicle speed detection server\n")
	})
	return mux, nil
}
