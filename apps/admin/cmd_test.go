package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"io/ioutil"
	"log"
	"strconv"
	"testing"

	"github.com/trezcool/hatua/core"
	"github.com/trezcool/hatua/core/user"
	"github.com/trezcool/hatua/storage/database/inmem"
)

func setup(t *testing.T) (*commandLine, *inmemdb.DB) {
	t.Helper()
	logger = log.New(ioutil.Discard, "", 0)
	db := inmemdb.NewDB()
	return &commandLine{
		conf:     core.LoadConfig(),
		usrRepo:  db,
		catRepo:  db,
		progRepo: db,
		lbRepo:   db,
	}, db
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func runTests(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				if tt.wantErr != nil || tt.wantErrStr != "" {
					t.Errorf("cli.run() error = nil, wantErr %v%s", tt.wantErr, tt.wantErrStr)
				}
				return
			}
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			} else if tt.wantErrStr != "" {
				if err.Error() != tt.wantErrStr {
					t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
				}
			} else {
				t.Errorf("cli.run() unexpected error: %v", err)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s requires a version", command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no args at all", args: nil, wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to requires a version"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	runTests(t, cli, tests)
}

func Test_commandLine_addUser(t *testing.T) {
	cli, db := setup(t)

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("LordOfTheRings"), nil }

	tests := []cliTest{
		{name: "username required", args: []string{"adduser", "-email", "jane@test.cd"}, wantErr: errHelp},
		{name: "email required", args: []string{"adduser", "-username", "jane"}, wantErr: errHelp},
		{name: "create", args: []string{"adduser", "-username", "jane", "-email", "jane@test.cd"}},
		{name: "update as admin", args: []string{"adduser", "-username", "jane", "-email", "jane@test.cd", "-admin"}},
	}
	runTests(t, cli, tests)

	usr, err := db.GetUser(context.Background(), user.GetFilter{UsernameOrEmail: []string{"jane"}})
	if err != nil {
		t.Fatalf("GetUser() failed: %v", err)
	}
	if !usr.Active() {
		t.Error("user is not active")
	}
	if !usr.IsAdmin() {
		t.Error("user is not admin after -admin run")
	}
	if err = usr.CheckPassword("LordOfTheRings"); err != nil {
		t.Errorf("CheckPassword() failed: %v", err)
	}
}

func Test_commandLine_seedCatalog(t *testing.T) {
	cli, db := setup(t)

	runTests(t, cli, []cliTest{{name: "seed", args: []string{"seedcatalog"}}})

	courses, err := db.QueryCourses(context.Background(), nil)
	if err != nil {
		t.Fatalf("QueryCourses() failed: %v", err)
	}
	if len(courses) == 0 {
		t.Fatal("no courses were seeded")
	}
	for _, crs := range courses {
		mods, err := db.GetModulesForCourse(context.Background(), crs.ID)
		if err != nil {
			t.Fatalf("GetModulesForCourse() failed: %v", err)
		}
		if len(mods) == 0 {
			t.Errorf("course %q has no modules", crs.Title)
		}
	}
}

func Test_commandLine_calcLeaderboard(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "unknown scope", args: []string{"calcleaderboard", "-scope", "lol"}, wantErrStr: "unknown leaderboard scope"},
		{name: "course scope needs a course", args: []string{"calcleaderboard", "-scope", "course"}, wantErrStr: "course scope requires a course id"},
		{name: "global", args: []string{"calcleaderboard"}},
		{name: "team", args: []string{"calcleaderboard", "-scope", "team"}},
	}
	runTests(t, cli, tests)
}
