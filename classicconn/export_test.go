// File export_test exports some methods for better testing.

package classicconn

func NewParseConfigError(conn, msg string, err error) error {
	return &ParseConfigError{
		ConnString: conn,
		msg:        msg,
		err:        err,
	}
}

func NewConnectionError(err error, msg string) error {
	return newConnectionError(err, "%s", msg)
}
