package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/go-user-lifecycle/internal/domain/apperror"
	"github.com/oksasatya/go-user-lifecycle/internal/domain/entity"
	"github.com/oksasatya/go-user-lifecycle/internal/domain/repository"
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and test mocks.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	pgUniqueViolation     = "23505"
	pgInvalidTextRepr     = "22P02"
	userColumns           = `id, first_name, last_name, email, password_hash, is_admin, is_user, state, photo_asset_id, photo_url, created_at, updated_at`
	msgUserNotFound       = "user not found"
	msgEmailAlreadyExists = "email already registered"
)

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) ListActive(ctx context.Context, offset, limit int) ([]entity.User, int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE state = true
		ORDER BY updated_at DESC, created_at DESC
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer rows.Close()

	users := make([]entity.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, mapErr(err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapErr(err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM users WHERE state = true`).Scan(&total); err != nil {
		return nil, 0, mapErr(err)
	}
	return users, total, nil
}

func (r *UserRepository) GetActiveByID(ctx context.Context, id string) (*entity.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1 AND state = true
	`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

func (r *UserRepository) GetCredentials(ctx context.Context, id string) (*entity.Credentials, error) {
	c := &entity.Credentials{}
	var assetID, url string
	err := r.db.QueryRow(ctx, `
		SELECT id, email, first_name, password_hash, photo_asset_id, photo_url
		FROM users
		WHERE id = $1 AND state = true
	`, id).Scan(&c.ID, &c.Email, &c.FirstName, &c.PasswordHash, &assetID, &url)
	if err != nil {
		return nil, mapErr(err)
	}
	c.Photo = entity.NewPhotoRef(assetID, url)
	return c, nil
}

func (r *UserRepository) Insert(ctx context.Context, u *entity.User) (string, error) {
	photo := entity.NewPhotoRef(u.Photo.AssetID, u.Photo.Locator)
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (first_name, last_name, email, password_hash, is_admin, is_user, state, photo_asset_id, photo_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.IsAdmin, u.IsUser, u.State, photo.AssetID, photo.Locator)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return "", mapErr(err)
	}
	u.Photo = photo
	return u.ID, nil
}

func (r *UserRepository) UpdateFields(ctx context.Context, id string, p entity.UserPatch) error {
	if p.IsEmpty() {
		return apperror.Validation("nothing to update")
	}
	set, args := buildPatch(p)
	args = append(args, id)
	res, err := r.db.Exec(ctx, `UPDATE users SET `+set+` WHERE id = $`+strconv.Itoa(len(args))+` AND state = true`, args...)
	if err != nil {
		return mapErr(err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NotFound(msgUserNotFound)
	}
	return nil
}

func (r *UserRepository) SoftDelete(ctx context.Context, id string) error {
	res, err := r.db.Exec(ctx, `
		UPDATE users
		SET state = false, is_user = false, is_admin = false, photo_asset_id = '', photo_url = '', updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return mapErr(err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NotFound(msgUserNotFound)
	}
	return nil
}

// buildPatch renders the SET clause for p with positional args starting at $1.
// The photo always writes both columns.
func buildPatch(p entity.UserPatch) (string, []any) {
	var (
		cols []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		cols = append(cols, col+" = $"+strconv.Itoa(len(args)))
	}
	if p.FirstName != nil {
		add("first_name", *p.FirstName)
	}
	if p.LastName != nil {
		add("last_name", *p.LastName)
	}
	if p.Email != nil {
		add("email", *p.Email)
	}
	if p.PasswordHash != nil {
		add("password_hash", *p.PasswordHash)
	}
	if p.IsAdmin != nil {
		add("is_admin", *p.IsAdmin)
	}
	if p.IsUser != nil {
		add("is_user", *p.IsUser)
	}
	if p.Photo != nil {
		ref := entity.NewPhotoRef(p.Photo.AssetID, p.Photo.Locator)
		add("photo_asset_id", ref.AssetID)
		add("photo_url", ref.Locator)
	}
	cols = append(cols, "updated_at = now()")
	return strings.Join(cols, ", "), args
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	var assetID, url string
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
		&u.IsAdmin, &u.IsUser, &u.State, &assetID, &url, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Photo = entity.NewPhotoRef(assetID, url)
	return u, nil
}

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NotFound(msgUserNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperror.Conflict(msgEmailAlreadyExists, err)
		case pgInvalidTextRepr:
			// malformed uuid
			return apperror.NotFound(msgUserNotFound)
		}
	}
	return apperror.Store("database error", err)
}

var _ repository.UserRepository = (*UserRepository)(nil)
