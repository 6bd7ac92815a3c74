// Package api provides the HTTP API server for ReBin Pro.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rebinpro/rebin/internal/achievements"
	"github.com/rebinpro/rebin/internal/analytics"
	"github.com/rebinpro/rebin/internal/core"
	"github.com/rebinpro/rebin/internal/logging"
	"github.com/rebinpro/rebin/internal/metrics"
	"github.com/rebinpro/rebin/internal/storage"
)

// Detector forwards an uploaded image to the vision-inference endpoint.
type Detector interface {
	Detect(ctx context.Context, image []byte, contentType, filename string) ([]core.ItemDetection, error)
}

// Reasoner classifies detected labels into bin decisions.
type Reasoner interface {
	Classify(ctx context.Context, labels []string, zip string, policies map[string]any) ([]core.ItemDecision, error)
}

// Synthesizer turns narration text into audio. Best effort: an empty result
// means no audio is available.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, personality core.Personality) string
}

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server

	// Gateways
	detector    Detector
	reasoner    Reasoner
	synthesizer Synthesizer

	db    *storage.DB
	wsHub *WebSocketHub

	// Stores
	eventStore       *storage.EventStore
	userStore        *storage.UserStore
	policyStore      *storage.PolicyStore
	challengeStore   *storage.ChallengeStore
	achievementStore *storage.AchievementStore
	feedbackStore    *storage.FeedbackStore
	analyticsStore   *storage.AnalyticsStore

	checker   *achievements.Checker
	analytics *analytics.Service
	metrics   *metrics.Manager
}

// Config for the server
type Config struct {
	Addr           string
	FrontendOrigin string
	DB             *storage.DB
	Detector       Detector
	Reasoner       Reasoner
	Synthesizer    Synthesizer
	Metrics        *metrics.Manager
}

// New creates a new API server
func New(cfg Config) *Server {
	m := cfg.Metrics
	if m == nil {
		m = metrics.NewManager()
	}

	eventStore := storage.NewEventStore(cfg.DB)
	userStore := storage.NewUserStore(cfg.DB)
	achievementStore := storage.NewAchievementStore(cfg.DB)

	s := &Server{
		detector:         cfg.Detector,
		reasoner:         cfg.Reasoner,
		synthesizer:      cfg.Synthesizer,
		db:               cfg.DB,
		eventStore:       eventStore,
		userStore:        userStore,
		policyStore:      storage.NewPolicyStore(cfg.DB),
		challengeStore:   storage.NewChallengeStore(cfg.DB),
		achievementStore: achievementStore,
		feedbackStore:    storage.NewFeedbackStore(cfg.DB),
		analyticsStore:   storage.NewAnalyticsStore(cfg.DB),
		checker:          achievements.NewChecker(eventStore, achievementStore),
		analytics:        analytics.NewService(eventStore, userStore, achievementStore),
		metrics:          m,
		wsHub:            NewWebSocketHub(),
	}

	s.setupRouter(cfg.FrontendOrigin)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRouter configures all routes
func (s *Server) setupRouter(frontendOrigin string) {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(90 * time.Second))
	r.Use(s.recordMetrics)

	origins := []string{"*"}
	if frontendOrigin != "" {
		origins = []string{frontendOrigin}
	}

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Pipeline
	r.Post("/infer", s.handleInfer)
	r.Post("/explain", s.handleExplain)
	r.Post("/event", s.handleCreateEvent)

	// Chatbot
	r.Route("/chatbot", func(r chi.Router) {
		r.Post("/speak", s.handleSpeak)
		r.Post("/tts", s.handleTTS)
		r.Get("/voices", s.handleGetVoices)
		r.Get("/avatars", s.handleGetAvatars)
	})

	// Users
	r.Route("/users", func(r chi.Router) {
		r.Get("/profile/{userID}", s.handleGetProfile)
		r.Put("/profile/{userID}", s.handleUpdateProfile)
		r.Get("/preferences/{userID}", s.handleGetPreferences)
		r.Put("/preferences/{userID}", s.handleUpdatePreferences)
		r.Get("/stats/{userID}", s.handleGetUserStats)
		r.Get("/achievements/{userID}", s.handleGetAchievements)
		r.Get("/challenges", s.handleGetChallenges)
		r.Post("/challenges/{challengeID}/join", s.handleJoinChallenge)
		r.Get("/challenges/{userID}/participating", s.handleGetParticipating)
		r.Get("/activity/{userID}", s.handleGetUserActivity)
		r.Post("/feedback", s.handleCreateFeedback)
		r.Post("/last-seen/{userID}", s.handleUpdateLastSeen)
	})

	// Analytics
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/trends", s.handleGetTrends)
		r.Get("/impact", s.handleGetImpact)
		r.Get("/leaderboard", s.handleGetLeaderboard)
		r.Get("/recent-activity", s.handleGetRecentActivity)
		r.Post("/track-event", s.handleTrackEvent)
	})

	// WebSocket
	r.Get("/ws", s.handleWebSocket)

	// Operational
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router = r
}

// recordMetrics observes every request against its matched route pattern.
func (s *Server) recordMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		s.metrics.RecordRequest(route, strconv.Itoa(ww.Status()), time.Since(start))
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go s.wsHub.Run()

	logging.Info("API server listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Broadcast sends a message to all WebSocket clients
func (s *Server) Broadcast(msgType string, data any) {
	s.wsHub.Broadcast(WebSocketMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Response helpers ---

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, kind core.FaultKind, message string) {
	s.respondJSON(w, status, map[string]string{
		"error":   string(kind),
		"message": message,
	})
}

// respondFault maps a classified failure to its HTTP status. Raw internal
// errors never reach the client; unclassified failures become a generic 500.
func (s *Server) respondFault(w http.ResponseWriter, err error) {
	kind := core.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case core.FaultValidation:
		status = http.StatusBadRequest
	case core.FaultRateLimit:
		status = http.StatusTooManyRequests
	case core.FaultServiceUnavailable:
		status = http.StatusServiceUnavailable
	case core.FaultCV, core.FaultReasoning, core.FaultParse:
		status = http.StatusBadGateway
	case core.FaultConfig:
		status = http.StatusInternalServerError
	}

	if kind == core.FaultServer {
		logging.Error("unclassified failure: %v", err)
	}
	s.respondError(w, status, kind, core.MessageOf(err))
}
