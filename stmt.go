package classicpg

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/classicpg/classicpg-go/classicconn"
)

// Stmt is a client-side prepared statement. The classic protocol has no
// server-side prepare, so the statement text is held locally and '?'
// placeholders are interpolated with quoted argument values at execution
// time, the way the original drivers for this protocol did.
type Stmt struct {
	conn *Conn
	sql  string
}

// Prepare creates a client-side prepared statement. Nothing is sent to the
// backend.
func (c *Conn) Prepare(sql string) *Stmt {
	return &Stmt{conn: c, sql: sql}
}

// Exec executes the statement with args substituted for '?' placeholders.
func (s *Stmt) Exec(ctx context.Context, args ...any) (classicconn.CommandTag, error) {
	sql, err := interpolate(s.sql, args)
	if err != nil {
		return classicconn.CommandTag{}, err
	}
	return s.conn.Exec(ctx, sql)
}

// Query executes the statement with args substituted for '?' placeholders
// and returns a Rows iterator.
func (s *Stmt) Query(ctx context.Context, args ...any) (*Rows, error) {
	sql, err := interpolate(s.sql, args)
	if err != nil {
		return nil, err
	}
	return s.conn.Query(ctx, sql)
}

// SQL returns the statement text with its placeholders intact.
func (s *Stmt) SQL() string {
	return s.sql
}

// interpolate replaces each '?' outside of single-quoted strings with the
// rendered argument. Placeholder and argument counts must match exactly.
func interpolate(sql string, args []any) (string, error) {
	var b strings.Builder
	b.Grow(len(sql) + 16*len(args))

	argIdx := 0
	inString := false
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case ch == '\'':
			inString = !inString
			b.WriteByte(ch)
		case ch == '?' && !inString:
			if argIdx >= len(args) {
				return "", fmt.Errorf("not enough arguments: statement has more than %d placeholders", len(args))
			}
			rendered, err := renderValue(args[argIdx])
			if err != nil {
				return "", err
			}
			b.WriteString(rendered)
			argIdx++
		default:
			b.WriteByte(ch)
		}
	}

	if argIdx < len(args) {
		return "", fmt.Errorf("too many arguments: statement has only %d placeholders", argIdx)
	}
	return b.String(), nil
}

func renderValue(arg any) (string, error) {
	switch arg := arg.(type) {
	case nil:
		return "NULL", nil
	case string:
		return quoteString(arg), nil
	case []byte:
		return quoteString(string(arg)), nil
	case bool:
		if arg {
			return "'t'", nil
		}
		return "'f'", nil
	case int:
		return strconv.FormatInt(int64(arg), 10), nil
	case int16:
		return strconv.FormatInt(int64(arg), 10), nil
	case int32:
		return strconv.FormatInt(int64(arg), 10), nil
	case int64:
		return strconv.FormatInt(arg, 10), nil
	case float32:
		return strconv.FormatFloat(float64(arg), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(arg, 'g', -1, 64), nil
	case time.Time:
		return quoteString(arg.Format("2006-01-02 15:04:05")), nil
	default:
		return "", fmt.Errorf("cannot interpolate argument of type %T", arg)
	}
}

func quoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", "''")
	return "'" + s + "'"
}
