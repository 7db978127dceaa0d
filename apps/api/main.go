package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"

	echoapi "github.com/trezcool/hatua/apps/api/echo"
	"github.com/trezcool/hatua/core"
	"github.com/trezcool/hatua/core/catalog"
	"github.com/trezcool/hatua/core/leaderboard"
	"github.com/trezcool/hatua/core/progress"
	"github.com/trezcool/hatua/core/screentime"
	"github.com/trezcool/hatua/core/user"
	emailsvc "github.com/trezcool/hatua/services/email"
	logsvc "github.com/trezcool/hatua/services/logger"
	"github.com/trezcool/hatua/storage/database"
	sqlxrepos "github.com/trezcool/hatua/storage/database/sqlx"
)

func main() {
	conf := core.LoadConfig()
	std := log.New(os.Stdout, conf.AppName+" ", log.LstdFlags|log.Lshortfile)

	var logger core.Logger
	if conf.Debug {
		logger = logsvc.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, conf)
	}

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		std.Fatalf("opening database: %v", err)
	}
	defer func() { _ = db.Close() }()
	sdb := sqlx.NewDb(db, conf.Database.Engine)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	usrRepo := sqlxrepos.NewUserRepository(sdb)
	catRepo := sqlxrepos.NewCatalogRepository(sdb)
	progRepo := sqlxrepos.NewProgressRepository(sdb)
	lbRepo := sqlxrepos.NewLeaderboardRepository(sdb)

	usrSvc := user.NewService(db, usrRepo)
	catSvc := catalog.NewService(db, catRepo)
	progSvc := progress.NewService(db, progRepo, usrSvc, catSvc, mailSvc, logger, conf)
	lbSvc := leaderboard.NewService(lbRepo, progRepo, usrSvc, catSvc, logger, conf)
	stSvc := screentime.NewService(progRepo, usrSvc, catSvc)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// periodic leaderboard recalculation
	var scheduler *cron.Cron
	if spec := conf.Leaderboard.RecalcSchedule; spec != "" {
		scheduler = cron.New(cron.WithLocation(time.UTC))
		if _, err = scheduler.AddFunc(spec, func() {
			if _, err := lbSvc.Recalculate(context.Background(), leaderboard.ScopeGlobal, ""); err != nil {
				logger.Error("recalculating global leaderboard", err)
			}
			if _, err := lbSvc.Recalculate(context.Background(), leaderboard.ScopeTeam, ""); err != nil {
				logger.Error("recalculating team leaderboard", err)
			}
		}); err != nil {
			std.Fatalf("scheduling leaderboard recalculation: %v", err)
		}
		scheduler.Start()
	}

	// start API server
	app := echoapi.NewServer(&echoapi.Options{
		Address:        conf.Server.Addr,
		UserSvc:        usrSvc,
		CatalogSvc:     catSvc,
		ProgressSvc:    progSvc,
		LeaderboardSvc: lbSvc,
		ScreentimeSvc:  stSvc,
		Logger:         logger,
		SignalShutdown: func() { shutdown <- syscall.SIGTERM },
	})
	go app.Start()
	logger.Info("API server started", "addr", conf.Server.Addr)

	<-shutdown
	logger.Info("shutting down")

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = app.Stop(ctx); err != nil {
		std.Fatalf("stopping server: %v", err)
	}
}
