package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/hatua/core"
	"github.com/trezcool/hatua/core/catalog"
	"github.com/trezcool/hatua/core/leaderboard"
	"github.com/trezcool/hatua/core/progress"
	"github.com/trezcool/hatua/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db   *sql.DB
	conf *core.Config

	usrRepo  user.Repository
	catRepo  catalog.Repository
	progRepo progress.Repository
	lbRepo   leaderboard.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate up|down|status [ARGS] - run database migrations")
	fmt.Println("  adduser -username USERNAME -email EMAIL [-admin] - update or create a user; the password will be prompted")
	fmt.Println("  seedcatalog - load the sample course catalog")
	fmt.Println("  calcleaderboard [-scope global|course|team] [-course COURSE_ID] - recalculate a leaderboard")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant all roles.")

	calcCmd := flag.NewFlagSet("calcleaderboard", flag.ExitOnError)
	calcScope := calcCmd.String("scope", string(leaderboard.ScopeGlobal), "The leaderboard scope.")
	calcCourse := calcCmd.String("course", "", "The course ID for the course scope.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserUname, *addUserEmail, string(pwd), *addUserAdmin)
	case "seedcatalog":
		return cli.seedCatalog()
	case "calcleaderboard":
		if err := calcCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.calcLeaderboard(*calcScope, *calcCourse)
	default:
		cli.printUsage()
		return errHelp
	}
}
