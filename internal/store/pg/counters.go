package pg

import (
	"context"
	"database/sql"
)

// nextCounter atomically increments the named counter and reports the id the
// caller should assign plus whether this was the first allocation for key.
//
// The row is created with value 1 on first use; xmax<>0 distinguishes an
// update from a fresh insert. The assigned sequence is 0, 1, 2, ... with no
// gaps under committed transactions, because the increment shares the
// caller's transaction and rolls back with it.
func nextCounter(ctx context.Context, tx *sql.Tx, key string) (id int64, first bool, err error) {
	var value int64
	var existed bool
	err = tx.QueryRowContext(ctx, `
		insert into counters (key, value)
		values ($1, 1)
		on conflict (key) do update set value = counters.value + 1
		returning value, (xmax <> 0) as existed
	`, key).Scan(&value, &existed)
	if err != nil {
		return 0, false, err
	}
	return value - 1, !existed, nil
}

// NextID allocates the next id for key in its own transaction. Entity inserts
// use nextCounter inside their own tx instead; this is the standalone form.
func (s *Store) NextID(ctx context.Context, key string) (int64, bool, error) {
	var id int64
	var first bool
	err := s.withTx(ctx, nil, func(tx *sql.Tx) error {
		var err error
		id, first, err = nextCounter(ctx, tx, key)
		return err
	})
	return id, first, err
}
