package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoapi "github.com/maharatedu/platform/apps/api/echo"
	"github.com/maharatedu/platform/core"
	"github.com/maharatedu/platform/core/lesson"
	"github.com/maharatedu/platform/core/messaging"
	"github.com/maharatedu/platform/core/progress"
	"github.com/maharatedu/platform/core/settings"
	"github.com/maharatedu/platform/core/user"
	emailsvc "github.com/maharatedu/platform/services/email"
	dummyid "github.com/maharatedu/platform/services/identity/dummy"
	firebaseid "github.com/maharatedu/platform/services/identity/firebase"
	logsvc "github.com/maharatedu/platform/services/logger"
	revokesvc "github.com/maharatedu/platform/services/revoke"
	"github.com/maharatedu/platform/storage/docstore"
	dummystore "github.com/maharatedu/platform/storage/docstore/dummy"
	firestoredb "github.com/maharatedu/platform/storage/docstore/firestore"
)

const shutdownTimeout = 20 * time.Second

func main() {
	ctx := context.Background()

	// set up logger
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	var logger core.Logger
	if core.Conf.Debug {
		logger = logsvc.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, core.Conf)
	}

	// set up document store & identity
	var (
		store    docstore.Store
		identity core.Identity
	)
	if core.Conf.Debug {
		store = dummystore.Open()
		identity = dummyid.NewService()
	} else {
		var err error
		if store, err = firestoredb.Open(ctx, core.Conf.Firebase); err != nil {
			logger.Fatal(fmt.Sprintf("setting up document store: %v", err), err)
		}
		if identity, err = firebaseid.NewService(ctx, core.Conf.Firebase); err != nil {
			logger.Fatal(fmt.Sprintf("setting up identity service: %v", err), err)
		}
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error(fmt.Sprintf("closing document store: %v", err), err)
		}
	}()

	// set up token revocation
	var revocations revokesvc.Store
	if core.Conf.Debug {
		revocations = revokesvc.NewMemoryStore()
	} else {
		var err error
		if revocations, err = revokesvc.NewRedisStore(core.Conf.Redis); err != nil {
			logger.Fatal(fmt.Sprintf("setting up revocation store: %v", err), err)
		}
	}

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}
	usrSvc := user.NewService(store, identity, mailSvc)
	lsnSvc := lesson.NewService(store)
	prgSvc := progress.NewService(store)
	setSvc := settings.NewService(store)
	msgSvc := messaging.NewService(store, usrSvc, mailSvc)

	logger.Info(fmt.Sprintf("Application initializing : version %q", core.Conf.Build))
	defer logger.Info("Application stopped")

	// start API server
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(
		&echoapi.Options{
			Address:     core.Conf.Server.Addr,
			UserSvc:     usrSvc,
			LessonSvc:   lsnSvc,
			ProgressSvc: prgSvc,
			SettingsSvc: setSvc,
			MessageSvc:  msgSvc,
			Revocations: revocations,
			Logger:      logger,
			Shutdown:    shutdown,
		},
	)
	go server.Start()

	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	sctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := server.Stop(sctx); err != nil {
		logger.Error(fmt.Sprintf("graceful shutdown failed: %v", err), err)
	}
}
