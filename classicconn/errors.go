package classicconn

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ConnectionError is a handshake or transport failure: connect refused, a
// read or write failure, or an unexpected end of stream. It is fatal to the
// session.
type ConnectionError struct {
	msg string
	err error
}

func (e *ConnectionError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return fmt.Sprintf("%s: %s", e.msg, e.err.Error())
}

func (e *ConnectionError) Unwrap() error {
	return e.err
}

func newConnectionError(err error, format string, args ...any) *ConnectionError {
	return &ConnectionError{msg: fmt.Sprintf(format, args...), err: err}
}

// ServerError is an error reported by the backend over the wire (tag 'E').
// It is fatal to the current query only; rows buffered for that query are
// discarded and never returned partially.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// ValidationError is a local rejection of a statement before any bytes are
// written to the transport.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

// UnsupportedError reports a request for a feature this driver does not
// implement. It always fails immediately with no partial work performed.
type UnsupportedError struct {
	Feature string
}

func (e *UnsupportedError) Error() string {
	return e.Feature + " is not supported"
}

// connLockError occurs when an operation is attempted on a session that can
// no longer accept it.
type connLockError struct {
	status string
}

func (e *connLockError) Error() string {
	return e.status
}

// ParseConfigError is an error parsing a connection string. The connection
// string is included in the message with any password redacted.
type ParseConfigError struct {
	ConnString string
	msg        string
	err        error
}

func (e *ParseConfigError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("cannot parse `%s`: %s", redactPW(e.ConnString), e.msg)
	}
	return fmt.Sprintf("cannot parse `%s`: %s (%s)", redactPW(e.ConnString), e.msg, e.err.Error())
}

func (e *ParseConfigError) Unwrap() error {
	return e.err
}

func newParseConfigError(connString, msg string, err error) *ParseConfigError {
	return &ParseConfigError{
		ConnString: connString,
		msg:        msg,
		err:        err,
	}
}

func redactPW(connString string) string {
	if strings.HasPrefix(connString, "postgres://") || strings.HasPrefix(connString, "postgresql://") {
		if u, err := url.Parse(connString); err == nil {
			return redactURL(u)
		}
	}
	quotedKV := regexp.MustCompile(`password='[^']*'`)
	connString = quotedKV.ReplaceAllLiteralString(connString, "password=xxxxx")
	plainKV := regexp.MustCompile(`password=[^ ]*`)
	connString = plainKV.ReplaceAllLiteralString(connString, "password=xxxxx")
	brokenURL := regexp.MustCompile(`:[^:@]+?@`)
	connString = brokenURL.ReplaceAllLiteralString(connString, ":xxxxxx@")
	return connString
}

func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	if _, pwSet := u.User.Password(); pwSet {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
