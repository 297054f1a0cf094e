package chserver

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jpillora/requestlog"
	"github.com/rs/cors"

	"github.com/openrport/userd/server/api/middleware"
	"github.com/openrport/userd/server/routes"
)

func (al *APIListener) initRouter() {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(al.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(al.handleMethodNotAllowed)

	// liveness probe lives outside the versioned API
	r.HandleFunc(routes.HealthRoute, al.handleGetHealth).Methods(http.MethodGet)
	r.HandleFunc(routes.LegacyUserRoute, al.handleGetUser).Methods(http.MethodGet)

	api := r.PathPrefix(routes.AllRoutesPrefix).Subrouter()
	api.HandleFunc("/status", al.handleGetStatus).Methods(http.MethodGet)
	api.HandleFunc(routes.UsersRoute, al.handlePostUser).Methods(http.MethodPost)
	api.HandleFunc(routes.UserRoute, al.handleGetUser).Methods(http.MethodGet)
	api.HandleFunc(routes.UserRoute, al.handlePutUser).Methods(http.MethodPut)
	api.HandleFunc(routes.UserRoute, al.handleDeleteUser).Methods(http.MethodDelete)

	api.Use(func(next http.Handler) http.Handler {
		return middleware.MaxBytes(next, al.config.Server.MaxRequestBytes)
	})

	r.Use(middleware.RequestID)
	if al.requestLogOptions != nil {
		r.Use(func(next http.Handler) http.Handler { return requestlog.WrapWith(next, *al.requestLogOptions) })
	}
	if al.accessLogFile != nil {
		r.Use(func(next http.Handler) http.Handler { return handlers.CombinedLoggingHandler(al.accessLogFile, next) })
	}

	r.Use(handlers.CompressHandler)
	r.Use(handlers.RecoveryHandler(
		handlers.PrintRecoveryStack(true),
		handlers.RecoveryLogger(middleware.NewRecoveryLogger(al.Logger)),
	))

	al.router = r
	al.handler = r

	if len(al.config.API.CORSOrigins) > 0 {
		al.handler = cors.New(cors.Options{
			AllowedOrigins: al.config.API.CORSOrigins,
			AllowedMethods: []string{
				http.MethodGet,
				http.MethodPost,
				http.MethodPut,
				http.MethodDelete,
			},
			AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
			ExposedHeaders: []string{middleware.RequestIDHeader},
		}).Handler(r)
	}
}
