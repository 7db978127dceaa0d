package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/hatua/core"
	"github.com/trezcool/hatua/core/user"
)

func (db *DB) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	defer db.rlock(exec)()

	excluded := make(map[string]struct{}, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = struct{}{}
	}
	for _, usr := range db.users {
		if _, ok := excluded[usr.ID]; ok {
			continue
		}
		if username != "" && strings.EqualFold(usr.Username, username) {
			return user.ErrUsernameExists
		}
		if email != "" && strings.EqualFold(usr.Email, email) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (db *DB) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	defer db.lock(exec)()

	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	db.users[usr.ID] = usr
	return usr, nil
}

func (db *DB) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	defer db.rlock(exec)()

	if filter.ID != "" {
		if usr, ok := db.users[filter.ID]; ok {
			return usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range db.users {
		for _, uname := range filter.UsernameOrEmail {
			if strings.EqualFold(usr.Username, uname) || strings.EqualFold(usr.Email, uname) {
				return usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (db *DB) QueryUsers(ctx context.Context, filter *user.QueryFilter, exec ...core.DBExecutor) ([]user.User, error) {
	defer db.rlock(exec)()

	var users []user.User
	for _, usr := range db.users {
		if filter != nil && !matchUser(usr, filter) {
			continue
		}
		users = append(users, usr)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (db *DB) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	defer db.lock(exec)()

	if _, ok := db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	db.users[usr.ID] = usr
	return usr, nil
}

func (db *DB) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	defer db.lock(exec)()

	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	db.users[usr.ID] = usr
	return usr, nil
}

func matchUser(usr user.User, filter *user.QueryFilter) bool {
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(usr.Name), search) &&
			!strings.Contains(strings.ToLower(usr.Username), search) &&
			!strings.Contains(strings.ToLower(usr.Email), search) {
			return false
		}
	}
	if len(filter.Roles) > 0 {
		match := false
		for _, role := range filter.Roles {
			if usr.RoleStartsWith(role) {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	if filter.IsActive != nil && usr.Active() != *filter.IsActive {
		return false
	}
	return true
}
