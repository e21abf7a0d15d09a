package pg

import (
	"context"
	"database/sql"
	"errors"

	"storefront.dev/internal/auth"
)

// RoleRepo implements auth.RoleStore on the shared pool.
type RoleRepo struct {
	s *Store
}

// Create inserts the role with an id from the highest_role_id counter. The
// first role ever created is forced to the administrator role regardless of
// the requested name and permissions.
func (r *RoleRepo) Create(ctx context.Context, role *auth.Role) error {
	if role == nil {
		return auth.ErrInvalidInput
	}
	return r.s.withTx(ctx, nil, func(tx *sql.Tx) error {
		id, first, err := nextCounter(ctx, tx, auth.CounterHighestRoleID)
		if err != nil {
			return err
		}
		if first {
			*role = *auth.AdminRole()
		} else {
			role.ID = id
		}

		if _, err := tx.ExecContext(ctx, `
			insert into roles (id, name)
			values ($1, $2)
			on conflict (id) do nothing
		`, role.ID, role.Name); err != nil {
			return err
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
	})
}

func (r *RoleRepo) Find(ctx context.Context, id int64) (*auth.Role, error) {
	var role auth.Role
	err := r.s.db.QueryRowContext(ctx, `
		select id, name from roles where id = $1
	`, id).Scan(&role.ID, &role.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.s.db.QueryContext(ctx, `
		select permission from role_permissions where role_id = $1 order by permission
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	role.Permissions = []string{}
	for rows.Next() {
		var perm string
		if err := rows.Scan(&perm); err != nil {
			return nil, err
		}
		role.Permissions = append(role.Permissions, perm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &role, nil
}

// Update replaces the role's name and permission set in one transaction.
func (r *RoleRepo) Update(ctx context.Context, role *auth.Role) (*auth.Role, error) {
	if role == nil {
		return nil, auth.ErrInvalidInput
	}
	err := r.s.withTx(ctx, nil, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			update roles set name = $2 where id = $1
		`, role.ID, role.Name)
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
		if _, err := tx.ExecContext(ctx, `
			delete from role_permissions where role_id = $1
		`, role.ID); err != nil {
			return err
		}
		for _, perm := range role.Permissions {
			if _, err := tx.ExecContext(ctx, `
				insert into role_permissions (role_id, permission)
				values ($1, $2)
			`, role.ID, perm); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return role, nil
}

// Delete removes the role row; permission rows and user assignments cascade
// via foreign keys.
func (r *RoleRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.s.db.ExecContext(ctx, `delete from roles where id = $1`, id)
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
