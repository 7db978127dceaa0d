package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/hatua/core"
	"github.com/trezcool/hatua/core/user"
)

var _ user.Repository = (*userRepository)(nil)

type userRepository struct {
	repoBase
}

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{repoBase{db: db}}
}

type dbUser struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func (u dbUser) toCore() user.User {
	usr := user.User{
		ID:           u.ID,
		Name:         u.Name,
		Username:     u.Username,
		Email:        u.Email,
		Roles:        u.Roles,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		LastLogin:    u.LastLogin.Time,
	}
	usr.SetActive(u.IsActive)
	return usr
}

func fromCoreUser(usr user.User) dbUser {
	return dbUser{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     usr.Username,
		Email:        usr.Email,
		IsActive:     usr.Active(),
		Roles:        pq.StringArray(usr.Roles),
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt,
		UpdatedAt:    usr.UpdatedAt,
		LastLogin:    null.NewTime(usr.LastLogin, !usr.LastLogin.IsZero()),
	}
}

const userCols = `id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login`

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	excluded := make([]string, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded = append(excluded, usr.ID)
	}

	var match dbUser
	err := sqlx.GetContext(ctx, repo.ext(exec), &match,
		`SELECT `+userCols+` FROM "user"
		 WHERE (LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($2)) AND id <> ALL($3)
		 LIMIT 1`,
		username, email, pq.Array(excluded),
	)
	if err != nil {
		return trapErr(err, nil)
	}
	if username != "" && strings.EqualFold(match.Username, username) {
		return user.ErrUsernameExists
	}
	return user.ErrEmailExists
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	u := fromCoreUser(usr)
	_, err := repo.ext(exec).ExecContext(ctx,
		`INSERT INTO "user" (`+userCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.Name, u.Username, u.Email, u.IsActive, u.Roles, u.PasswordHash, u.CreatedAt, u.UpdatedAt, u.LastLogin,
	)
	return usr, trapErr(err, nil)
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var (
		u    dbUser
		err  error
		ext  = repo.ext(exec)
		base = `SELECT ` + userCols + ` FROM "user" `
	)
	if filter.ID != "" {
		err = sqlx.GetContext(ctx, ext, &u, base+`WHERE id = $1`, filter.ID)
	} else {
		err = sqlx.GetContext(ctx, ext, &u,
			base+`WHERE LOWER(username) = ANY($1) OR LOWER(email) = ANY($1) LIMIT 1`,
			pq.Array(lowered(filter.UsernameOrEmail)),
		)
	}
	if err != nil {
		return user.User{}, trapErr(err, user.ErrNotFound)
	}
	return u.toCore(), nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, exec ...core.DBExecutor) ([]user.User, error) {
	query := `SELECT ` + userCols + ` FROM "user"`
	var (
		conds []string
		args  []interface{}
	)
	if filter != nil {
		if filter.Search != "" {
			args = append(args, "%"+strings.ToLower(filter.Search)+"%")
			p := fmt.Sprintf("$%d", len(args))
			conds = append(conds, `(LOWER(name) LIKE `+p+` OR LOWER(username) LIKE `+p+` OR LOWER(email) LIKE `+p+`)`)
		}
		if len(filter.Roles) > 0 {
			prefixes := make([]string, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				prefixes = append(prefixes, role+"%")
			}
			args = append(args, pq.Array(prefixes))
			conds = append(conds, fmt.Sprintf(`EXISTS (SELECT 1 FROM unnest(roles) r WHERE r LIKE ANY($%d))`, len(args)))
		}
		if filter.IsActive != nil {
			args = append(args, *filter.IsActive)
			conds = append(conds, fmt.Sprintf(`is_active = $%d`, len(args)))
		}
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY id`

	var rows []dbUser
	if err := sqlx.SelectContext(ctx, repo.ext(exec), &rows, query, args...); err != nil {
		return nil, trapErr(err, nil)
	}
	users := make([]user.User, 0, len(rows))
	for _, u := range rows {
		users = append(users, u.toCore())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	u := fromCoreUser(usr)
	res, err := repo.ext(exec).ExecContext(ctx,
		`UPDATE "user"
		 SET name = $2, username = $3, email = $4, is_active = $5, roles = $6,
		     password_hash = $7, updated_at = $8, last_login = $9
		 WHERE id = $1`,
		u.ID, u.Name, u.Username, u.Email, u.IsActive, u.Roles, u.PasswordHash, u.UpdatedAt, u.LastLogin,
	)
	if err != nil {
		return user.User{}, trapErr(err, nil)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	u := fromCoreUser(usr)
	_, err := repo.ext(exec).ExecContext(ctx,
		`INSERT INTO "user" (`+userCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name, username = EXCLUDED.username, email = EXCLUDED.email,
		     is_active = EXCLUDED.is_active, roles = EXCLUDED.roles,
		     password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at,
		     last_login = EXCLUDED.last_login`,
		u.ID, u.Name, u.Username, u.Email, u.IsActive, u.Roles, u.PasswordHash, u.CreatedAt, u.UpdatedAt, u.LastLogin,
	)
	return usr, trapErr(err, nil)
}

func lowered(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		out = append(out, strings.ToLower(v))
	}
	return out
}
