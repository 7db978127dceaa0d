package user_test

import (
	"context"
	"testing"

	"github.com/trezcool/hatua/core"
	"github.com/trezcool/hatua/core/user"
	"github.com/trezcool/hatua/storage/database/inmem"
)

func setup(t *testing.T) (*user.Service, *inmemdb.DB) {
	t.Helper()
	db := inmemdb.NewDB()
	return user.NewService(nil, db), db
}

func TestService_Create(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	nu := user.NewUser{
		Name:            "Jane",
		Username:        "jane",
		Email:           "jane@test.cd",
		Password:        "LordOfTheRings",
		PasswordConfirm: "LordOfTheRings",
		Roles:           []string{user.RoleTrainee},
	}
	usr, err := svc.Create(ctx, nu)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if usr.ID == "" {
		t.Error("ID is empty")
	}
	if !usr.Active() {
		t.Error("new user is not active")
	}
	if err = usr.CheckPassword("LordOfTheRings"); err != nil {
		t.Errorf("CheckPassword() failed: %v", err)
	}
	if !usr.IsTrainee() || usr.IsAdmin() {
		t.Errorf("roles = %v, want trainee only", usr.Roles)
	}

	t.Run("username must be unique", func(t *testing.T) {
		dup := nu
		dup.Email = "other@test.cd"
		_, err := svc.Create(ctx, dup)
		vErr, ok := err.(*core.ValidationError)
		if !ok {
			t.Fatalf("Create() error = %v, want *core.ValidationError", err)
		}
		if len(vErr.Fields) != 1 || vErr.Fields[0].Field != "username" {
			t.Errorf("Fields = %+v, want a username error", vErr.Fields)
		}
	})

	t.Run("email must be unique", func(t *testing.T) {
		dup := nu
		dup.Username = "other"
		_, err := svc.Create(ctx, dup)
		vErr, ok := err.(*core.ValidationError)
		if !ok {
			t.Fatalf("Create() error = %v, want *core.ValidationError", err)
		}
		if len(vErr.Fields) != 1 || vErr.Fields[0].Field != "email" {
			t.Errorf("Fields = %+v, want an email error", vErr.Fields)
		}
	})

	t.Run("lookup is case insensitive", func(t *testing.T) {
		got, err := svc.GetByUsernameOrEmail(ctx, "JANE")
		if err != nil {
			t.Fatalf("GetByUsernameOrEmail() failed: %v", err)
		}
		if got.ID != usr.ID {
			t.Errorf("ID = %v, want %v", got.ID, usr.ID)
		}

		got, err = svc.GetByUsernameOrEmail(ctx, "Jane@Test.CD")
		if err != nil {
			t.Fatalf("GetByUsernameOrEmail() failed: %v", err)
		}
		if got.ID != usr.ID {
			t.Errorf("ID = %v, want %v", got.ID, usr.ID)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		if _, err := svc.GetByUsernameOrEmail(ctx, "nobody"); err != user.ErrNotFound {
			t.Errorf("GetByUsernameOrEmail() error = %v, want %v", err, user.ErrNotFound)
		}
	})
}

func TestService_QueryTrainees(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()

	mk := func(uname string, roles []string, active bool) {
		nu := user.NewUser{
			Name:            uname,
			Username:        uname,
			Email:           uname + "@test.cd",
			Password:        "LordOfTheRings",
			PasswordConfirm: "LordOfTheRings",
			Roles:           roles,
		}
		usr, err := svc.Create(ctx, nu)
		if err != nil {
			t.Fatalf("Create(%s) failed: %v", uname, err)
		}
		if !active {
			usr.SetActive(false)
			if _, err = db.UpdateUser(ctx, usr); err != nil {
				t.Fatalf("UpdateUser(%s) failed: %v", uname, err)
			}
		}
	}
	mk("alice", []string{user.RoleTrainee}, true)
	mk("bob", []string{user.RoleTrainee}, true)
	mk("coach", []string{user.RoleTrainer}, true)
	mk("ghost", []string{user.RoleTrainee}, false)

	trainees, err := svc.QueryTrainees(ctx)
	if err != nil {
		t.Fatalf("QueryTrainees() failed: %v", err)
	}
	if len(trainees) != 2 {
		t.Fatalf("len(trainees) = %v, want 2", len(trainees))
	}
	for _, usr := range trainees {
		if !usr.IsTrainee() || !usr.Active() {
			t.Errorf("unexpected candidate: %v", usr.Username)
		}
	}
}

func TestMaxRolePriority(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  int
	}{
		{name: "none", roles: nil, want: 0},
		{name: "trainee", roles: []string{user.RoleTrainee}, want: 10},
		{name: "mixed", roles: []string{user.RoleTrainee, user.RoleTrainer}, want: 20},
		{name: "admin", roles: user.AllRoles, want: 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := user.MaxRolePriority(tt.roles); got != tt.want {
				t.Errorf("MaxRolePriority() = %v, want %v", got, tt.want)
			}
		})
	}
}
