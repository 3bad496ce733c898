package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khoahotran/user-directory/internal/domain/user"
	"github.com/khoahotran/user-directory/pkg/apperror"
	"github.com/khoahotran/user-directory/pkg/logger"
)

const pgUniqueViolation = "23505"

type postgresUserRepo struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresUserRepo(db *pgxpool.Pool, log logger.Logger) user.Repository {
	return &postgresUserRepo{db: db, logger: log}
}

var psqlUser = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var userColumns = []string{
	"id", "first_name", "last_name", "email", "password_hash", "phone_number", "avatar_url", "created_at",
}

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email,
		&u.PasswordHash, &u.PhoneNumber, &u.AvatarURL, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *postgresUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	query, args, err := psqlUser.Select(userColumns...).
		From("users").
		Where(sq.Eq{"email": email}).
		ToSql()
	if err != nil {
		return nil, apperror.NewStorage("failed to build find user query", err)
	}

	u, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.NewStorage("error when query user", err)
	}
	return u, nil
}

func (r *postgresUserRepo) Create(ctx context.Context, draft *user.User) (*user.User, error) {
	if err := draft.Validate(); err != nil {
		return nil, apperror.NewStorage("refusing to persist invalid user", err)
	}

	query, args, err := psqlUser.Insert("users").
		Columns("id", "first_name", "last_name", "email", "password_hash", "phone_number", "avatar_url").
		Values(draft.ID, draft.FirstName, draft.LastName, draft.Email, draft.PasswordHash, draft.PhoneNumber, draft.AvatarURL).
		Suffix("RETURNING " + strings.Join(userColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, apperror.NewStorage("failed to build insert user query", err)
	}

	created, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, fmt.Errorf("insert user %s: %w", draft.Email, user.ErrDuplicateKey)
		}
		return nil, apperror.NewStorage("failed to save user", err)
	}
	return created, nil
}

func (r *postgresUserRepo) List(ctx context.Context) ([]*user.User, error) {
	query, args, err := psqlUser.Select(userColumns...).
		From("users").
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, apperror.NewStorage("failed to build list users query", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperror.NewStorage("failed to query users", err)
	}
	defer rows.Close()

	users := make([]*user.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, apperror.NewStorage("failed to scan user row", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewStorage("error iterating user rows", err)
	}
	return users, nil
}
