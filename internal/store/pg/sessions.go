package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"storefront.dev/internal/auth"
)

// SessionRepo implements auth.SessionStore on the shared pool.
type SessionRepo struct {
	s *Store
}

func (r *SessionRepo) Create(ctx context.Context, sess *auth.Session) error {
	if sess == nil {
		return auth.ErrInvalidInput
	}
	_, err := r.s.db.ExecContext(ctx, `
		insert into sessions (id, user_id, refresh_token, expires_at)
		values ($1, $2, $3, $4)
	`, sess.ID, sess.UserID, sess.RefreshToken, sess.ExpiresAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *SessionRepo) Find(ctx context.Context, id string) (*auth.Session, error) {
	return r.findSession(ctx, `where id = $1`, id)
}

func (r *SessionRepo) FindByToken(ctx context.Context, refreshToken string) (*auth.Session, error) {
	return r.findSession(ctx, `where refresh_token = $1`, refreshToken)
}

func (r *SessionRepo) findSession(ctx context.Context, where string, arg any) (*auth.Session, error) {
	var sess auth.Session
	err := r.s.db.QueryRowContext(ctx, `
		select id, user_id, refresh_token, expires_at
		from sessions `+where,
		arg,
	).Scan(&sess.ID, &sess.UserID, &sess.RefreshToken, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// Rotate swaps oldToken for newToken in a single compare-and-set. Zero
// matched rows means the token was already rotated or never existed and
// surfaces as ErrRotationFailed.
func (r *SessionRepo) Rotate(ctx context.Context, oldToken, newToken string, expiresAt time.Time) error {
	res, err := r.s.db.ExecContext(ctx, `
		update sessions
		set refresh_token = $2, expires_at = $3
		where refresh_token = $1
	`, oldToken, newToken, expiresAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrRotationFailed
	}
	return nil
}

func (r *SessionRepo) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	res, err := r.s.db.ExecContext(ctx, `delete from sessions where user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.s.db.ExecContext(ctx, `delete from sessions where expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
