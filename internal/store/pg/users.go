package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"storefront.dev/internal/auth"
)

// UserRepo implements auth.UserStore on the shared pool.
type UserRepo struct {
	s *Store
}

// Create inserts the user and allocates its id from the highest_user_id
// counter inside one transaction; a duplicate email rolls back the counter
// increment together with the insert. The first user ever created becomes the
// administrator: id 0, admin type, role 0, with the administrator role seeded
// in the same transaction if it does not exist yet.
func (r *UserRepo) Create(ctx context.Context, u *auth.User) error {
	if u == nil {
		return auth.ErrInvalidInput
	}
	return r.s.withTx(ctx, nil, func(tx *sql.Tx) error {
		id, first, err := nextCounter(ctx, tx, auth.CounterHighestUserID)
		if err != nil {
			return err
		}
		u.ID = id
		if first {
			u.Type = auth.UserTypeAdmin
			u.RoleIDs = []int64{auth.AdminRoleID}
			if err := seedAdminRole(ctx, tx); err != nil {
				return err
			}
		}

		addresses := u.Addresses
		if addresses == nil {
			addresses = []auth.Address{}
		}
		addrJSON, err := json.Marshal(addresses)
		if err != nil {
			return fmt.Errorf("marshal addresses: %w", err)
		}

		if u.RegisteredAt.IsZero() {
			u.RegisteredAt = time.Now().UTC()
		}
		_, err = tx.ExecContext(ctx, `
			insert into users (id, type, email, email_verified, password_hash, password_salt, first_name, last_name, addresses, registered_at)
			values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, u.ID, string(u.Type), u.Email, u.EmailVerified, u.PasswordHash, u.PasswordSalt, u.FirstName, u.LastName, addrJSON, u.RegisteredAt)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
				return auth.ErrAlreadyExists
			}
			return err
		}

		for _, roleID := range u.RoleIDs {
			if _, err := tx.ExecContext(ctx, `
				insert into user_roles (user_id, role_id)
				values ($1, $2)
				on conflict do nothing
			`, u.ID, roleID); err != nil {
				return err
			}
		}
		return nil
	})
}

// seedAdminRole upserts role 0 and its permission rows so the first user can
// reference it before any role was created through the roles service. Seeding
// must also consume the role counter's first allocation: otherwise the next
// role created would be treated as the first one and collapse into role 0.
// When the row already exists the roles store consumed the counter.
func seedAdminRole(ctx context.Context, tx *sql.Tx) error {
	role := auth.AdminRole()
	res, err := tx.ExecContext(ctx, `
		insert into roles (id, name)
		values ($1, $2)
		on conflict (id) do nothing
	`, role.ID, role.Name)
	if err != nil {
		return err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if inserted == 1 {
		if _, _, err := nextCounter(ctx, tx, auth.CounterHighestRoleID); err != nil {
			return err
		}
	}
	for _, perm := range role.Permissions {
		if _, err := tx.ExecContext(ctx, `
			insert into role_permissions (role_id, permission)
			values ($1, $2)
			on conflict do nothing
		`, role.ID, perm); err != nil {
			return err
		}
	}
	return nil
}

func (r *UserRepo) Find(ctx context.Context, id int64) (*auth.User, error) {
	return r.findUser(ctx, `where id = $1`, id)
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.findUser(ctx, `where email = $1`, email)
}

// findUser expects exactly one matching row: zero rows is ErrNotFound and
// more than one is ErrAmbiguous, which would mean a broken unique constraint
// or a hand-edited table.
func (r *UserRepo) findUser(ctx context.Context, where string, arg any) (*auth.User, error) {
	var (
		u         auth.User
		userType  string
		addrJSON  []byte
		lastLogin sql.NullTime
	)
	rows, err := r.s.db.QueryContext(ctx, `
		select id, type, email, email_verified, password_hash, password_salt, first_name, last_name, addresses, registered_at, last_login
		from users `+where,
		arg,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, auth.ErrNotFound
	}
	if err := rows.Scan(&u.ID, &userType, &u.Email, &u.EmailVerified, &u.PasswordHash, &u.PasswordSalt, &u.FirstName, &u.LastName, &addrJSON, &u.RegisteredAt, &lastLogin); err != nil {
		return nil, err
	}
	if rows.Next() {
		return nil, auth.ErrAmbiguous
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()
	u.Type = auth.UserType(userType)
	if lastLogin.Valid {
		u.LastLogin = lastLogin.Time
	}
	u.Addresses = []auth.Address{}
	if len(addrJSON) > 0 {
		if err := json.Unmarshal(addrJSON, &u.Addresses); err != nil {
			return nil, fmt.Errorf("decode addresses: %w", err)
		}
	}

	roleRows, err := r.s.db.QueryContext(ctx, `
		select role_id from user_roles where user_id = $1 order by role_id
	`, u.ID)
	if err != nil {
		return nil, err
	}
	defer roleRows.Close()
	u.RoleIDs = []int64{}
	for roleRows.Next() {
		var roleID int64
		if err := roleRows.Scan(&roleID); err != nil {
			return nil, err
		}
		u.RoleIDs = append(u.RoleIDs, roleID)
	}
	if err := roleRows.Err(); err != nil {
		return nil, err
	}
	return &u, nil
}

// AssignRoles adds the given roles to the user with set semantics; assigning
// an already-held role is a no-op. An unknown role surfaces as ErrNotFound
// via the foreign key.
func (r *UserRepo) AssignRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	if len(roleIDs) == 0 {
		return nil
	}
	return r.s.withTx(ctx, nil, func(tx *sql.Tx) error {
		for _, roleID := range roleIDs {
			if _, err := tx.ExecContext(ctx, `
				insert into user_roles (user_id, role_id)
				values ($1, $2)
				on conflict do nothing
			`, userID, roleID); err != nil {
				if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
					return auth.ErrNotFound
				}
				return err
			}
		}
		return nil
	})
}

// RemoveRoles drops the given roles from the user; absent assignments are
// ignored.
func (r *UserRepo) RemoveRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	if len(roleIDs) == 0 {
		return nil
	}
	return r.s.withTx(ctx, nil, func(tx *sql.Tx) error {
		for _, roleID := range roleIDs {
			if _, err := tx.ExecContext(ctx, `
				delete from user_roles where user_id = $1 and role_id = $2
			`, userID, roleID); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveRoleFromAllUsers strips roleID from every user and returns how many
// assignments were removed. Roles service calls this before deleting a role.
func (r *UserRepo) RemoveRoleFromAllUsers(ctx context.Context, roleID int64) (int64, error) {
	res, err := r.s.db.ExecContext(ctx, `delete from user_roles where role_id = $1`, roleID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *UserRepo) RecordLogin(ctx context.Context, userID int64, at time.Time) error {
	res, err := r.s.db.ExecContext(ctx, `update users set last_login = $2 where id = $1`, userID, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrNotFound
	}
	return nil
}
