package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"homeplan/internal/app"
	appLog "homeplan/internal/log"
)

// Server exposes presence, recipes and the meal plan over HTTP.
type Server struct {
	app    *app.App
	router *mux.Router
}

// NewServer constructs a new Server.
func NewServer(a *app.App) *Server {
	s := &Server{
		app:    a,
		router: mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.app.Config.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	ba := s.app.Config.BasicAuth
	if ba == nil {
		return false
	}
	// An empty username or password means "off", not "accept empty".
	return ba.Username != "" && ba.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.app.Config.BasicAuth.Username
	password := s.app.Config.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="homeplan", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Serve listens on the configured address until ctx is cancelled, then
// shuts down gracefully.
func Serve(ctx context.Context, a *app.App) error {
	srv := &http.Server{
		Addr:              a.Config.Listen,
		Handler:           NewServer(a).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+a.Config.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	r := s.router
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/presence", s.handlePresence).Methods(http.MethodGet)
	api.HandleFunc("/presence/refresh", s.handlePresenceRefresh).Methods(http.MethodPost)
	api.HandleFunc("/presence/day/{date}", s.handlePresenceDay).Methods(http.MethodGet)
	api.HandleFunc("/presence/absences.ics", s.handleAbsencesICS).Methods(http.MethodGet)

	api.HandleFunc("/recipes", s.handleListRecipes).Methods(http.MethodGet)
	api.HandleFunc("/recipes", s.handleCreateRecipe).Methods(http.MethodPost)
	api.HandleFunc("/recipes/{id}", s.handleGetRecipe).Methods(http.MethodGet)
	api.HandleFunc("/recipes/{id}", s.handleUpdateRecipe).Methods(http.MethodPut)
	api.HandleFunc("/recipes/{id}", s.handleDeleteRecipe).Methods(http.MethodDelete)

	api.HandleFunc("/meals", s.handleListMeals).Methods(http.MethodGet)
	api.HandleFunc("/meals", s.handleUpsertMeal).Methods(http.MethodPost)
	api.HandleFunc("/meals/suggest", s.handleSuggest).Methods(http.MethodPost)

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// decodeJSON reads a bounded JSON body. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
