package main

import (
	"context"

	"github.com/trezcool/hatua/core/catalog"
	"github.com/trezcool/hatua/core/leaderboard"
	"github.com/trezcool/hatua/core/user"
	logsvc "github.com/trezcool/hatua/services/logger"
)

func (cli *commandLine) calcLeaderboard(scope, courseID string) error {
	ctx := context.Background()
	lbSvc := leaderboard.NewService(
		cli.lbRepo,
		cli.progRepo,
		user.NewService(cli.db, cli.usrRepo),
		catalog.NewService(cli.db, cli.catRepo),
		logsvc.NewStdLogger(logger),
		cli.conf,
	)
	entries, err := lbSvc.Recalculate(ctx, leaderboard.Scope(scope), courseID)
	if err != nil {
		return err
	}
	logger.Printf("recalculated %q leaderboard: %d entries", scope, len(entries))
	return nil
}
