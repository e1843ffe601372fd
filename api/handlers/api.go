package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/linesmerrill/forensic-case-api/api"
	"github.com/linesmerrill/forensic-case-api/api/scheduler"
	"github.com/linesmerrill/forensic-case-api/config"
	"github.com/linesmerrill/forensic-case-api/databases"
	"github.com/linesmerrill/forensic-case-api/notifications"
	"github.com/linesmerrill/forensic-case-api/policy"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	Tokens    *api.Authenticator
	Live      *LiveHub
	Refresher *scheduler.Refresher
	Scheduler *scheduler.Scheduler
	Notifier  AccountNotifier
	client    databases.ClientHelper
	dbHelper  databases.DatabaseHelper
}

// NewApp wires an App around an existing database, used by main after
// connecting and by tests with mocks
func NewApp(conf config.Config, db databases.DatabaseHelper) *App {
	a := &App{Config: conf, dbHelper: db}
	a.wire()
	return a
}

func (a *App) wire() {
	a.Tokens = api.NewAuthenticator(a.Config.JWTSecret, a.Config.TokenTTL)
	a.Live = NewLiveHub()
	a.Refresher = &scheduler.Refresher{
		Occurrences: databases.NewOccurrenceDatabase(a.dbHelper),
		Movements:   databases.NewMovementDatabase(a.dbHelper),
		Window:      a.Config.NearDeadlineWindow,
		Live:        a.Live,
	}
	a.Scheduler = scheduler.NewScheduler(a.Refresher, a.Config.DeadlineRefreshCron, databases.NewLockDatabase(a.dbHelper))
	if a.Notifier == nil {
		a.Notifier = notifications.New(a.Config.SendgridAPIKey, a.Config.MailFrom, a.Config.BaseURL)
	}
	a.Router = a.New()
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	userDB := databases.NewUserDatabase(a.dbHelper)
	resources := make(map[string]databases.ResourceDatabase, len(ResourceKinds))
	for _, k := range ResourceKinds {
		resources[k.Collection] = databases.NewResourceDatabase(a.dbHelper, k.Collection)
	}

	auth := Auth{DB: userDB, Tokens: a.Tokens}
	u := User{DB: userDB, ServiceDB: resources[databases.ForensicServiceCollection], Notifier: a.Notifier}
	o := Occurrence{
		DB:         databases.NewOccurrenceDatabase(a.dbHelper),
		MovementDB: databases.NewMovementDatabase(a.dbHelper),
		UserDB:     userDB,
		Lookups: Lookups{
			Cities:           resources[databases.CityCollection],
			Procedures:       resources[databases.ProcedureCollection],
			Authorities:      resources[databases.AuthorityCollection],
			RequestingUnits:  resources[databases.RequestingUnitCollection],
			ForensicServices: resources[databases.ForensicServiceCollection],
			Classifications:  resources[databases.OccurrenceClassificationCollection],
			ExamTypes:        resources[databases.ExamTypeCollection],
		},
		DeadlineDays: a.Config.DefaultDeadlineDays,
		Window:       a.Config.NearDeadlineWindow,
		Live:         a.Live,
	}
	m := Movement{
		DB:           o.MovementDB,
		OccurrenceDB: o.DB,
		Refresher:    a.Refresher,
		Window:       a.Config.NearDeadlineWindow,
		Live:         a.Live,
	}

	admin := api.Require(policy.IsAdmin)
	editor := api.Require(policy.CanEdit)

	r := mux.NewRouter()
	r.Use(api.MetricsMiddleware)

	// healthchex
	r.HandleFunc("/health", api.HealthCheckHandler).Methods("GET")
	r.Handle("/metrics", api.MetricsHandler()).Methods("GET")

	limiter := api.NewRateLimiter(a.Config.LoginRatePerMinute, a.Config.LoginBurst)
	r.Handle("/auth/login", limiter.Middleware(http.HandlerFunc(auth.LoginHandler))).Methods("POST")
	r.Handle("/users", limiter.Middleware(http.HandlerFunc(u.RegisterHandler))).Methods("POST")

	r.Handle("/live", TokenFromQuery(a.Tokens.Middleware(a.Live))).Methods("GET")

	s := r.NewRoute().Subrouter()
	s.Use(a.Tokens.Middleware)
	if a.Config.RequestTimeout > 0 {
		s.Use(api.TimeoutMiddleware(a.Config.RequestTimeout))
	}

	s.HandleFunc("/auth/logout", auth.LogoutHandler).Methods("DELETE")
	s.HandleFunc("/auth/profile", auth.ProfileHandler).Methods("GET")

	s.Handle("/users", admin(http.HandlerFunc(u.UsersHandler))).Methods("GET")
	s.HandleFunc("/users/{id}", u.UserHandler).Methods("GET")
	s.Handle("/users/{id}", admin(http.HandlerFunc(u.UpdateUserHandler))).Methods("PATCH")
	s.Handle("/users/{id}/approve", admin(http.HandlerFunc(u.ApproveUserHandler))).Methods("PATCH")
	s.Handle("/users/{id}/reject", admin(http.HandlerFunc(u.RejectUserHandler))).Methods("PATCH")
	s.HandleFunc("/users/{id}/forensic-services", u.UserForensicServicesHandler).Methods("GET")
	s.Handle("/users/{id}/forensic-services", admin(http.HandlerFunc(u.LinkForensicServicesHandler))).Methods("POST")
	s.Handle("/users/{id}/forensic-services/{serviceId}", admin(http.HandlerFunc(u.UnlinkForensicServiceHandler))).Methods("DELETE")

	for _, k := range ResourceKinds {
		res := Resource{DB: resources[k.Collection], Kind: k}
		base := "/" + k.Path
		s.HandleFunc(base, res.ListHandler).Methods("GET")
		s.Handle(base, admin(http.HandlerFunc(res.CreateHandler))).Methods("POST")
		s.HandleFunc(base+"/{id}", res.GetHandler).Methods("GET")
		s.Handle(base+"/{id}", admin(http.HandlerFunc(res.UpdateHandler))).Methods("PATCH")
		s.Handle(base+"/{id}", admin(http.HandlerFunc(res.DeleteHandler))).Methods("DELETE")
	}

	s.HandleFunc("/general-occurrences", o.OccurrencesHandler).Methods("GET")
	s.Handle("/general-occurrences", editor(http.HandlerFunc(o.CreateOccurrenceHandler))).Methods("POST")
	s.HandleFunc("/general-occurrences/my-occurrences", o.MyOccurrencesHandler).Methods("GET")
	s.HandleFunc("/general-occurrences/filter/by-status", o.ByStatusHandler).Methods("GET")
	s.HandleFunc("/general-occurrences/stats/summary", o.StatsHandler).Methods("GET")
	s.HandleFunc("/general-occurrences/{id}", o.OccurrenceHandler).Methods("GET")
	s.Handle("/general-occurrences/{id}", editor(http.HandlerFunc(o.UpdateOccurrenceHandler))).Methods("PATCH")
	s.Handle("/general-occurrences/{id}", admin(http.HandlerFunc(o.DeleteOccurrenceHandler))).Methods("DELETE")

	s.Handle("/occurrence-movements", editor(http.HandlerFunc(m.CreateMovementHandler))).Methods("POST")
	s.HandleFunc("/occurrence-movements/deadline-status", m.DeadlineStatusHandler).Methods("GET")
	s.Handle("/occurrence-movements/update-deadline-flags", admin(http.HandlerFunc(m.RefreshFlagsHandler))).Methods("POST")
	s.HandleFunc("/occurrence-movements/occurrence/{id}", m.OccurrenceMovementsHandler).Methods("GET")
	s.Handle("/occurrence-movements/extend-deadline/{id}", editor(http.HandlerFunc(m.ExtendDeadlineHandler))).Methods("POST")
	s.HandleFunc("/occurrence-movements/{id}", m.DeleteMovementHandler).Methods("DELETE", "PATCH", "PUT")

	return r
}

// Handler wraps the router with CORS for the browser console
func (a *App) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   a.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(a.Router)
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {
	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().Errorw("failed to create new client", "error", err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	err = client.Connect(ctx)
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().Errorw("failed to connect to database", "error", err)
		return err
	}
	zap.S().Info("forensic-case-api has connected to the database")

	a.client = client
	a.dbHelper = databases.NewDatabase(&a.Config, client)
	a.wire()
	return nil
}

// Close stops the scheduler and disconnects from the database
func (a *App) Close(ctx context.Context) error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.client != nil {
		return a.client.Disconnect(ctx)
	}
	return nil
}
