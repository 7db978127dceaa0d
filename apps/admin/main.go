package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/hatua/core"
	"github.com/trezcool/hatua/storage/database"
	sqlxrepos "github.com/trezcool/hatua/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.LoadConfig()

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		errAndDie(err)
	}
	db, err := database.Open(conf)
	errAndDie(err)
	defer func() { _ = db.Close() }()
	errAndDie(db.Ping())
	sdb := sqlx.NewDb(db, conf.Database.Engine)

	// start CLI
	cli := commandLine{
		db:       db,
		conf:     conf,
		usrRepo:  sqlxrepos.NewUserRepository(sdb),
		catRepo:  sqlxrepos.NewCatalogRepository(sdb),
		progRepo: sqlxrepos.NewProgressRepository(sdb),
		lbRepo:   sqlxrepos.NewLeaderboardRepository(sdb),
	}
	if err := cli.run(os.Args); err != nil {
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
