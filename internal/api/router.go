package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the HTTP router.
func NewRouter(h *Handlers) *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware)

	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/users/suggest", h.SuggestUsers).Methods("GET")
	apiRouter.HandleFunc("/posts", h.CreatePost).Methods("POST")
	apiRouter.HandleFunc("/posts/{id}/comments", h.CreateComment).Methods("POST")
	apiRouter.HandleFunc("/helpdesk/posts", h.CreateHelpDeskPost).Methods("POST")
	apiRouter.HandleFunc("/helpdesk/posts/{id}/comments", h.CreateHelpDeskComment).Methods("POST")
	apiRouter.HandleFunc("/notifications", h.ListNotifications).Methods("GET")
	apiRouter.HandleFunc("/notifications/{id}/read", h.MarkNotificationRead).Methods("POST")
	apiRouter.HandleFunc("/notifications/read-all", h.MarkAllNotificationsRead).Methods("POST")

	return router
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logrus.Debugf("%s %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}
