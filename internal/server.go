package internal

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kazz187/microwin/internal/api"
	"github.com/kazz187/microwin/internal/config"
	"github.com/kazz187/microwin/internal/event"
	"github.com/kazz187/microwin/internal/orchestrator"
	"github.com/kazz187/microwin/internal/profile"
	"github.com/kazz187/microwin/internal/progress"
	"github.com/kazz187/microwin/internal/pushnotification"
	"github.com/kazz187/microwin/pkg/cerr"
	"github.com/kazz187/microwin/pkg/clog"
)

type Server struct {
	server                 *http.Server
	env                    *config.Env
	orch                   *orchestrator.Orchestrator
	taskServer             *orchestrator.Server
	profileServer          *profile.Server
	eventServer            *event.Server
	pushNotificationServer *pushnotification.Server
}

func NewServer(
	env *config.Env,
	orch *orchestrator.Orchestrator,
	taskServer *orchestrator.Server,
	profileServer *profile.Server,
	eventServer *event.Server,
	pushNotificationServer *pushnotification.Server,
) *Server {
	return &Server{
		env:                    env,
		orch:                   orch,
		taskServer:             taskServer,
		profileServer:          profileServer,
		eventServer:            eventServer,
		pushNotificationServer: pushNotificationServer,
	}
}

// Handler builds the full HTTP handler: connect services, the read-only JSON
// endpoints under /api, and health checks.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			cerr.NewJSONResponseChiMiddleware(),
		)
		r.Get("/progress", s.getProgress)
		r.Get("/history", s.getHistory)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
	})

	mux := http.NewServeMux()

	mux.Handle("/health", &HealthChecker{})
	mux.Handle("/api/", r)
	mux.Handle(grpchealth.NewHandler(grpchealth.NewStaticChecker(
		api.TaskServiceName,
		api.ProfileServiceName,
		api.EventServiceName,
		api.PushNotificationServiceName,
	)))

	handlerOpts := connect.WithInterceptors(s.interceptors()...)

	mux.Handle(api.NewTaskServiceHandler(s.taskServer, handlerOpts))
	mux.Handle(api.NewProfileServiceHandler(s.profileServer, handlerOpts))
	mux.Handle(api.NewEventServiceHandler(s.eventServer, handlerOpts))
	mux.Handle(api.NewPushNotificationServiceHandler(s.pushNotificationServer, handlerOpts))

	return cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.apiKeyMiddleware(mux))
}

// ListenAndServe starts the HTTP server. ctx is the base context of every
// request, so cancelling it also ends open event streams.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.env.Addr()
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr:        addr,
		Handler:     h2c.NewHandler(s.Handler(), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) interceptors() []connect.Interceptor {
	return []connect.Interceptor{
		clog.NewSlogConnectInterceptor(),
		cerr.NewConvertConnectErrorInterceptor(),
	}
}

type progressResponse struct {
	TaskID   string         `json:"taskId,omitempty"`
	MainTask string         `json:"mainTask,omitempty"`
	Progress progress.Stats `json:"progress"`
	NextStep string         `json:"nextStep,omitempty"`
	Unsaved  bool           `json:"unsaved,omitempty"`
}

func (s *Server) getProgress(_ http.ResponseWriter, r *http.Request) {
	t := s.orch.Current()
	res := progressResponse{
		Progress: progress.CompletionStats(t),
		Unsaved:  s.orch.Dirty(),
	}
	if t != nil {
		res.TaskID = t.ID
		res.MainTask = t.MainTask
	}
	if next, ok := progress.NextActionableStep(t); ok {
		res.NextStep = next.Text
	}
	cerr.SetJSONResponse(r.Context(), res)
}

func (s *Server) getHistory(_ http.ResponseWriter, r *http.Request) {
	history, err := s.orch.History(r.Context())
	if err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	cerr.SetJSONResponse(r.Context(), orchestrator.ToAPITasks(progress.NewestFirst(history)))
}

func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/grpc.health.v1.Health/Check" {
			next.ServeHTTP(w, r)
			return
		}
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(s.env.APIKey)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
