// Package api is the JSON polling surface used by the patron chat widget and
// the librarian dashboard. Clients discover new state by polling; nothing is
// pushed.
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/harunnryd/libradesk/internal/canned"
	deskErrors "github.com/harunnryd/libradesk/internal/errors"
	"github.com/harunnryd/libradesk/internal/feedback"
	"github.com/harunnryd/libradesk/internal/handoff"
	"github.com/harunnryd/libradesk/internal/librarian"
	"github.com/harunnryd/libradesk/internal/logger"
	"github.com/harunnryd/libradesk/internal/router"

	"github.com/oklog/ulid/v2"
)

// Suggested polling cadence advertised to clients.
const (
	DashboardPollInterval = 2 * time.Second
	ChatPollInterval      = 3 * time.Second
)

const maxBodyBytes = 1 << 20

type Deps struct {
	Router   *router.Router
	Desk     *handoff.Desk
	Feedback *feedback.Store
	Canned   *canned.Catalog
	Access   *librarian.Access
}

type Server struct {
	router   *router.Router
	desk     *handoff.Desk
	feedback *feedback.Store
	canned   *canned.Catalog
	access   *librarian.Access
}

func NewServer(deps Deps) *Server {
	if deps.Feedback == nil {
		deps.Feedback = feedback.NewStore()
	}
	if deps.Canned == nil {
		deps.Canned = &canned.Catalog{Categories: []canned.Category{}}
	}
	return &Server{
		router:   deps.Router,
		desk:     deps.Desk,
		feedback: deps.Feedback,
		canned:   deps.Canned,
		access:   deps.Access,
	}
}

// Register mounts every endpoint on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/request-librarian", s.handleRequestLibrarian)
	mux.HandleFunc("GET /api/conversation/{sessionId}", s.handleConversation)
	mux.HandleFunc("GET /api/conversation-status/{sessionId}", s.handleConversationStatus)
	mux.HandleFunc("GET /api/config/polling", s.handlePolling)

	mux.HandleFunc("POST /api/librarian/respond", s.handleRespond)
	mux.HandleFunc("POST /api/librarian/end-session", s.handleEndSession)
	mux.HandleFunc("POST /api/librarian/set-countdown", s.handleSetCountdown)
	mux.HandleFunc("GET /api/librarian/notifications", s.handleNotifications)
	mux.HandleFunc("GET /api/canned-responses", s.handleCanned)

	mux.HandleFunc("POST /api/feedback/message", s.handleMessageFeedback)
	mux.HandleFunc("POST /api/feedback/conversation", s.handleConversationFeedback)

	mux.HandleFunc("GET /api/admin/librarians", s.handleListLibrarians)
	mux.HandleFunc("POST /api/admin/approve", s.handleApprove)
	mux.HandleFunc("POST /api/admin/remove", s.handleRemove)
}

// Handler returns the API wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return WithRequestLogging(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// WithRequestLogging stamps a request id on the context and logs each
// request once it completes.
func WithRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := ulid.Make().String()
		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set("X-Request-ID", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		logger.From(ctx).Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if err == io.EOF {
			return deskErrors.InvalidInput("request body is empty")
		}
		return deskErrors.WrapWithCategory(err, "invalid request body", deskErrors.ErrInvalidInput)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := deskErrors.HTTPStatus(err)
	log := logger.From(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", "path", r.URL.Path, "category", deskErrors.Category(err), "error", err)
	} else {
		log.Info("Request rejected", "path", r.URL.Path, "category", deskErrors.Category(err), "error", err)
	}
	writeJSON(w, status, errorResponse{Success: false, Error: deskErrors.PublicMessage(err)})
}
