package api

import (
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/ozodbekdev/fitclub-server/cmd/models"
	"github.com/ozodbekdev/fitclub-server/cmd/utils"
	"github.com/ozodbekdev/fitclub-server/service/attendance"
	"github.com/ozodbekdev/fitclub-server/service/dashboard"
	"github.com/ozodbekdev/fitclub-server/service/finance"
	"github.com/ozodbekdev/fitclub-server/service/member"
	"github.com/ozodbekdev/fitclub-server/service/report"
	"github.com/ozodbekdev/fitclub-server/service/user"
	"github.com/ozodbekdev/fitclub-server/service/ws"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type APIServer struct {
	address string
	db      *gorm.DB
	club    *models.Club
}

func NewApiServer(address string, db *gorm.DB, club *models.Club) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
		club:    club,
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()
	router.Use(requestLogger)
	subrouter := router.PathPrefix("/api/v1").Subrouter()

	hub := ws.NewHub()
	go hub.Run()
	hub.RegisterRoutes(router)

	userHandler := user.NewHandler(s.db)
	userHandler.RegisterRoutes(subrouter)

	memberHandler := member.NewHandler(s.db)
	memberHandler.RegisterRoutes(subrouter)

	attendanceHandler := attendance.NewHandler(s.db, hub)
	attendanceHandler.RegisterRoutes(subrouter)

	financeHandler := finance.NewHandler(s.db)
	financeHandler.RegisterRoutes(subrouter)

	reportHandler := report.NewHandler(s.db)
	reportHandler.RegisterRoutes(subrouter)

	dashboardHandler := dashboard.NewDashboardHandler(s.db)
	dashboardHandler.RegisterRoutes(subrouter)

	subrouter.HandleFunc("/club", utils.AuthMiddleware(s.getClub)).Methods("GET")

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	utils.GetLogger().WithField("address", s.address).Info("server running")
	return http.ListenAndServe(s.address, cors(router))
}

// getClub exposes the settings row loaded at startup.
func (s *APIServer) getClub(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, utils.Response{Data: s.club})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		utils.GetLogger().WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Info("request completed")
	})
}
