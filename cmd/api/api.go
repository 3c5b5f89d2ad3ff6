package api

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/carelinkhq/carelink-server/cmd/utils"
	"github.com/carelinkhq/carelink-server/service/application"
	"github.com/carelinkhq/carelink-server/service/appointment"
	"github.com/carelinkhq/carelink-server/service/availability"
	"github.com/carelinkhq/carelink-server/service/dashboard"
	"github.com/carelinkhq/carelink-server/service/job"
	"github.com/carelinkhq/carelink-server/service/message"
	"github.com/carelinkhq/carelink-server/service/realtime"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type APIServer struct {
	address string
	db      *gorm.DB
	logger  *zap.Logger
	server  *http.Server
}

func NewApiServer(address string, db *gorm.DB) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
		logger:  utils.GetLogger(),
		server:  &http.Server{Addr: address},
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api/v1").Subrouter()

	hub := realtime.NewHub(s.logger)
	calendar := availability.NewCalendar(availability.NewGormSource(s.db), s.logger)
	store := utils.NewDocumentStoreFromEnv()

	availabilityHandler := availability.NewAvailabilityHandler(calendar)
	availabilityHandler.RegisterRoutes(subrouter)

	appointmentHandler := appointment.NewAppointmentHandler(s.db, calendar, hub)
	appointmentHandler.RegisterRoutes(subrouter)

	jobHandler := job.NewJobHandler(s.db, hub)
	jobHandler.RegisterRoutes(subrouter)

	applicationHandler := application.NewApplicationHandler(s.db, store, hub)
	applicationHandler.RegisterRoutes(subrouter)

	messageHandler := message.NewMessageHandler(s.db, hub)
	messageHandler.RegisterRoutes(subrouter)

	dashboardHandler := dashboard.NewDashboardHandler(s.db)
	dashboardHandler.RegisterRoutes(subrouter)

	wsHandler := realtime.NewWebSocketHandler(hub, s.logger)
	wsHandler.RegisterRoutes(router)

	// Uploaded application documents are served straight off disk.
	router.PathPrefix("/uploads/applications/").Handler(
		http.StripPrefix("/uploads/applications/", http.FileServer(http.Dir(store.Root()))))

	cors := handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins()),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	s.server.Handler = handlers.LoggingHandler(os.Stdout, cors(router))

	s.logger.Info("server listening", zap.String("address", s.address))
	return s.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests, up
// to the context deadline.
func (s *APIServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func allowedOrigins() []string {
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		return strings.Split(origins, ",")
	}
	return []string{"*"}
}
