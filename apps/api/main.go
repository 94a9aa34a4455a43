package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/ies/apps/api/echo"
	"github.com/trezcool/ies/core"
	"github.com/trezcool/ies/core/calendar"
	"github.com/trezcool/ies/core/evaluation"
	"github.com/trezcool/ies/core/user"
	emailsvc "github.com/trezcool/ies/services/email"
	exportsvc "github.com/trezcool/ies/services/export"
	googlesvc "github.com/trezcool/ies/services/google"
	locksvc "github.com/trezcool/ies/services/lock"
	logsvc "github.com/trezcool/ies/services/logger"
	"github.com/trezcool/ies/storage/database"
	inmemdb "github.com/trezcool/ies/storage/database/inmem"
	mongorepos "github.com/trezcool/ies/storage/database/mongo"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), conf.Database.ConnectTimeout)
		defer cancel()
		if err = db.Close(ctx); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()
	if !db.SupportsTransactions() {
		dbLogger.Warn("database is not a replica set: multi-document writes are not transactional")
	}

	// set up the form locks, shared through redis when configured
	var locker evaluation.FormLocker
	if conf.Redis.Addr != "" {
		client := locksvc.NewRedisClient(conf)
		defer client.Close()
		locker = locksvc.NewRedisLocker(client)
	} else {
		logger.Warn("redis address not configured: form locks are kept in memory")
		locker = inmemdb.NewFormLocker()
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(mongorepos.NewUserRepository(db), mailSvc, conf, logger)
	evalSvc := evaluation.NewService(evaluation.ServiceDeps{
		Forms:      mongorepos.NewFormRepository(db),
		Responses:  mongorepos.NewResponseRepository(db),
		Users:      usrSvc,
		Transactor: db,
		Locker:     locker,
		Notifier:   evaluation.NewMailNotifier(mailSvc, usrSvc),
		Logger:     logger,
		Conf:       conf,
	})
	calSvc := calendar.NewService(mongorepos.NewEventRepository(db), usrSvc, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator, conf.AllowedEmailDomains)
	evaluation.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	user.LoadCommonPasswords(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			Validate:      validate,
			Translator:    translator,
			MailSvc:       mailSvc,
			UserSvc:       usrSvc,
			EvaluationSvc: evalSvc,
			CalendarSvc:   calSvc,
			Exporter:      exportsvc.NewCSVExporter(),
			Google:        googlesvc.NewVerifier(conf.GoogleClientID),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*database.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Database.ConnectTimeout)
	defer cancel()

	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}
	if err = db.EnsureIndexes(ctx); err != nil {
		_ = db.Close(ctx)
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
