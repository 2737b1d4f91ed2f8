package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/contacthub/internal/domain/user"
	"github.com/geocoder89/contacthub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, password_hash, subscription, avatar_url, token,
	verify, verification_token, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	var sub string

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&sub,
		&u.AvatarURL,
		&u.Token,
		&u.Verify,
		&u.VerificationToken,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	u.Subscription = user.Subscription(sub)
	return u, nil
}

func (r *UsersRepo) queryUser(ctx context.Context, op, sql string, args ...any) (user.User, error) {
	var u user.User
	var miss bool

	err := r.prom.ObserveDB(op, func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, sql, args...))
		if errors.Is(err, user.ErrNotFound) {
			// a miss is not a DB error
			miss = true
			return nil
		}
		return err
	})
	if err != nil {
		return user.User{}, err
	}
	if miss {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	err := r.prom.ObserveDB("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, password_hash, subscription, avatar_url, token,
				verify, verification_token, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			u.ID, u.Email, u.PasswordHash, string(u.Subscription), u.AvatarURL, u.Token,
			u.Verify, u.VerificationToken, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.queryUser(ctx, "users.get_by_id",
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.queryUser(ctx, "users.get_by_email",
		`SELECT `+userColumns+` FROM users WHERE email = $1`, user.NormalizeEmail(email))
}

// SetToken stores or clears (nil) the user's single session token.
// Concurrent logins race here; the last write wins.
func (r *UsersRepo) SetToken(ctx context.Context, id string, token *string) error {
	var affected int64

	err := r.prom.ObserveDB("users.set_token", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users SET token = $2, updated_at = NOW() WHERE id = $1`,
			id, token,
		)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) UpdateSubscription(ctx context.Context, id string, sub user.Subscription) (user.User, error) {
	return r.queryUser(ctx, "users.update_subscription",
		`UPDATE users SET subscription = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, string(sub),
	)
}

func (r *UsersRepo) UpdateAvatar(ctx context.Context, id, avatarURL string) (user.User, error) {
	return r.queryUser(ctx, "users.update_avatar",
		`UPDATE users SET avatar_url = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, avatarURL,
	)
}

// ConsumeVerificationToken flips verify and drops the token in one
// statement, so a token can be consumed at most once.
func (r *UsersRepo) ConsumeVerificationToken(ctx context.Context, token string) (user.User, error) {
	return r.queryUser(ctx, "users.consume_verification_token",
		`UPDATE users
		SET verify = TRUE,
		    verification_token = NULL,
		    updated_at = NOW()
		WHERE verification_token = $1
		RETURNING `+userColumns,
		token,
	)
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
