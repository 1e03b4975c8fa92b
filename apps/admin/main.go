package main

import (
	"context"
	"log"
	"os"

	"github.com/maharatedu/platform/core"
	"github.com/maharatedu/platform/core/settings"
	"github.com/maharatedu/platform/core/user"
	emailsvc "github.com/maharatedu/platform/services/email"
	dummyid "github.com/maharatedu/platform/services/identity/dummy"
	firebaseid "github.com/maharatedu/platform/services/identity/firebase"
	"github.com/maharatedu/platform/storage/docstore"
	dummystore "github.com/maharatedu/platform/storage/docstore/dummy"
	firestoredb "github.com/maharatedu/platform/storage/docstore/firestore"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	ctx := context.Background()

	// set up document store & identity
	var (
		store    docstore.Store
		identity core.Identity
		err      error
	)
	if core.Conf.Debug {
		store = dummystore.Open()
		identity = dummyid.NewService()
	} else {
		store, err = firestoredb.Open(ctx, core.Conf.Firebase)
		errAndDie(err)
		identity, err = firebaseid.NewService(ctx, core.Conf.Firebase)
		errAndDie(err)
	}
	defer store.Close()

	// start CLI
	cli := commandLine{
		usrSvc: user.NewService(store, identity, emailsvc.NewConsoleService()),
		setSvc: settings.NewService(store),
	}
	if err := cli.run(ctx, os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
