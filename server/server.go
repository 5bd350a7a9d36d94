package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Daskott/lifealert/server/alerting"
	"github.com/Daskott/lifealert/server/auth/key"
	"github.com/Daskott/lifealert/server/dispatch"
	"github.com/Daskott/lifealert/server/feed"
	"github.com/Daskott/lifealert/server/logger"
	"github.com/Daskott/lifealert/server/mailer"
	"github.com/Daskott/lifealert/server/models"
	"github.com/Daskott/lifealert/server/twilio"
	"github.com/Daskott/lifealert/shared"
	"github.com/go-co-op/gocron"
	"github.com/go-playground/validator"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server holds everything a request handler needs. It is built once in Start
// (or by tests) and never stored in package state.
type Server struct {
	store    *models.Store
	alerts   *alerting.Service
	hub      *feed.Hub
	keyPair  *key.KeyPair
	validate *validator.Validate
	logg     *zap.SugaredLogger

	scheduler    *gocron.Scheduler
	stopListener context.CancelFunc
}

type Options struct {
	Store      *models.Store
	KeyPair    *key.KeyPair
	SMS        dispatch.SMSSender
	Email      dispatch.EmailSender
	Hub        *feed.Hub
	Logger     *zap.SugaredLogger
	MapsURL    string
	FeedSource string
}

func NewServer(opts Options) (*Server, error) {
	validate := validator.New()
	if err := RegisterValidators(validate); err != nil {
		return nil, err
	}

	if opts.Hub == nil {
		opts.Hub = feed.NewHub()
	}

	// With postgres as the feed source new alerts arrive through the
	// listener, so the alert workflow must not publish them a second time
	var publisher alerting.Publisher = opts.Hub
	if opts.FeedSource == shared.POSTGRES_FEED {
		publisher = nil
	}

	dispatcher := dispatch.NewDispatcher(opts.SMS, opts.Email, opts.MapsURL, opts.Logger)

	return &Server{
		store:    opts.Store,
		alerts:   alerting.NewService(opts.Store, dispatcher, publisher, opts.Logger),
		hub:      opts.Hub,
		keyPair:  opts.KeyPair,
		validate: validate,
		logg:     opts.Logger,
	}, nil
}

// Router returns the http handler with every route & middleware registered
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.Use(s.loggingMiddleware)
	router.Use(s.initialContextMiddleware)

	router.HandleFunc("/users", s.createUser).Methods("POST")
	router.HandleFunc("/login", s.logIn).Methods("POST")
	router.HandleFunc("/logout", s.logOut).Methods("POST")
	router.HandleFunc("/jwks", s.jwks).Methods("GET")
	router.HandleFunc("/alerts/feed", s.alertsFeed).Methods("GET")

	protected := router.NewRoute().Subrouter()
	protected.Use(s.protectedRouteMiddleware)
	protected.HandleFunc("/users/{uid}/contacts", s.findContacts).Methods("GET")
	protected.HandleFunc("/users/{uid}/contacts", s.updateContacts).Methods("PUT")
	protected.HandleFunc("/api/send-alert", s.sendAlert).Methods("POST")
	protected.HandleFunc("/alerts", s.fetchAlerts).Methods("GET")

	return router
}

// Start builds a server from config and blocks until SIGINT/SIGTERM
func Start(config *shared.ServerConfig, devMode bool) {
	logg := logger.NewLogger(devMode)
	defer logg.Sync()

	if config.Database.Driver == shared.SQLITE_DRIVER && config.Google.Storage.EnableSqliteBackup {
		err := restoreSqliteDb(config, logg)
		fatalOnError(logg, err)
	}

	store, err := models.Open(config.Database, logg)
	fatalOnError(logg, err)

	keyPair, err := key.NewKeyPairFromRSAPrivateKeyPem(config.LifeAlert.PrivateKeyPem)
	fatalOnError(logg, err)

	s, err := NewServer(Options{
		Store:      store,
		KeyPair:    keyPair,
		SMS:        twilio.NewClient(config.Twilio),
		Email:      mailer.NewMailer(config.Smtp),
		Logger:     logg,
		MapsURL:    config.Alerting.MapsBaseURL,
		FeedSource: config.Feed.Source,
	})
	fatalOnError(logg, err)

	if config.Feed.Source == shared.POSTGRES_FEED {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopListener = cancel
		go feed.NewPGListener(config.Database.Dsn, s.hub, logg).Run(ctx)
	}

	if config.Database.Driver == shared.SQLITE_DRIVER && config.Google.Storage.EnableSqliteBackup {
		s.scheduler, err = s.scheduleJobs(config)
		fatalOnError(logg, err)
		s.scheduler.StartAsync()
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%v", config.LifeAlert.Listener.Port),
		Handler: s.Router(),
	}

	go s.serve(httpServer)

	// Wait for an interrupt
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	<-sigint

	s.cleanup(httpServer)
}

func fatalOnError(logg *zap.SugaredLogger, err error) {
	if err != nil {
		logg.Fatal(err)
	}
}
