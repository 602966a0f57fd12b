package classicpg

import (
	"errors"

	"github.com/classicpg/classicpg-go/classicconn"
)

// ErrNoRows occurs when a query that is expected to return at least one row
// returns none.
var ErrNoRows = errors.New("no rows in result set")

// Rows iterates over an already-drained result group. Because the engine
// reads the whole backend response before returning, Rows never performs
// I/O; Close exists for symmetry with conventional row iterators and to
// guard against use after release.
type Rows struct {
	result *classicconn.Result
	idx    int
	closed bool
}

// Next advances to the next row. It returns false after the last row.
func (rows *Rows) Next() bool {
	if rows.closed {
		return false
	}
	if rows.idx+1 >= len(rows.result.Rows) {
		return false
	}
	rows.idx++
	return true
}

// Values returns the current row. Each slot is the raw column payload; a nil
// slot is a NULL. Next must have been called and returned true.
func (rows *Rows) Values() [][]byte {
	if rows.closed || rows.idx < 0 || rows.idx >= len(rows.result.Rows) {
		return nil
	}
	return rows.result.Rows[rows.idx]
}

// FieldDescriptions returns the ordered column descriptors for this result
// group. It may be nil if the statement produced no row-oriented result.
func (rows *Rows) FieldDescriptions() []classicconn.FieldDescription {
	return rows.result.FieldDescriptions
}

// CommandTag returns the command status string the backend reported for
// this result group.
func (rows *Rows) CommandTag() classicconn.CommandTag {
	return rows.result.CommandTag
}

// Close ends iteration. It never fails; the response was fully drained
// before the Rows was created.
func (rows *Rows) Close() {
	rows.closed = true
}
