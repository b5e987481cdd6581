package repository

import (
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// joinSets joins a set of "column = $n" fragments for a dynamic UPDATE
// statement's SET clause.
func joinSets(sets []string) string {
	return strings.Join(sets, ", ")
}

// checkRowsAffected turns a zero-row UPDATE/DELETE result into a NotFoundError,
// since Postgres doesn't error on an UPDATE that matches nothing.
func checkRowsAffected(result sql.Result, resource string, id interface{}) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return NewNotFoundError(resource, id)
	}
	return nil
}

// pqUUIDArray adapts a []uuid.UUID for use as a Postgres ANY($n) array
// parameter.
func pqUUIDArray(ids []uuid.UUID) interface{} {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	return pq.Array(strs)
}
