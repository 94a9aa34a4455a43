package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/ies/core"
	logsvc "github.com/trezcool/ies/services/logger"
	"github.com/trezcool/ies/storage/database"
	mongorepos "github.com/trezcool/ies/storage/database/mongo"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	ctx, cancel := context.WithTimeout(context.Background(), conf.Database.ConnectTimeout)
	db, err := database.Open(ctx, conf)
	cancel()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}

	// start CLI
	cli := commandLine{
		db:      db,
		usrRepo: mongorepos.NewUserRepository(db),
	}
	err = cli.run(os.Args)

	if cErr := db.Close(context.Background()); cErr != nil {
		logger.Error("closing database", cErr)
	}
	if err != nil && err != errHelp {
		logger.Error(fmt.Sprintf("error: %v", err), err)
	}
	logger.Close()

	if err != nil {
		os.Exit(1)
	}
}
