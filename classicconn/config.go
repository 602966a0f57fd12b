package classicconn

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgpassfile"
	"github.com/jackc/pgservicefile"
)

// DialFunc is a function that can be used to connect to a backend.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// NoticeHandler is a function that can handle notices received from the
// backend, usually during handling of a query response. It is the diagnostic
// sink for 'N' messages; notices are never promoted to errors.
type NoticeHandler func(*ClassicConn, *Notice)

// NotificationHandler is a function that can handle asynchronous
// notifications received from the backend. The core receives 'A' messages
// but does not route them anywhere else.
type NotificationHandler func(*ClassicConn, *Notification)

// Config is the settings used to establish a session with a backend. It must
// be created by [ParseConfig] and then it can be modified.
type Config struct {
	Host           string
	Port           uint16
	Database       string
	User           string
	Password       string // read from configuration; never sent during the handshake
	ConnectTimeout time.Duration
	DialFunc       DialFunc

	// Autocommit is the session's initial autocommit state.
	Autocommit bool

	// ReadOnly is an advisory hint only; it is not enforced over the wire.
	ReadOnly bool

	OnNotice       NoticeHandler
	OnNotification NotificationHandler

	createdByParseConfig bool // Used to enforce created by ParseConfig rule.
}

// Copy returns a deep copy of the config that is safe to use and modify. The
// only exception is the callbacks; they are shared between the returned copy
// and the original.
func (c *Config) Copy() *Config {
	newConfig := new(Config)
	*newConfig = *c
	return newConfig
}

// ConnString returns the connection string as parsed by ParseConfig into
// classicconn.Config.
func (c *Config) ConnString() string {
	return fmt.Sprintf("host=%s port=%d database=%s user=%s", c.Host, c.Port, c.Database, c.User)
}

// ParseConfig builds a *Config from connString with similar behavior to the
// libpq family of drivers. connString may be empty, a URL
// (postgres://user@host:port/database) or keyword/value
// (host=localhost port=5432 database=mydb) format. Each setting falls back
// to an environment variable (CLASSICPG_HOST, CLASSICPG_PORT,
// CLASSICPG_DATABASE, CLASSICPG_USER, CLASSICPG_PASSWORD,
// CLASSICPG_PASSFILE, CLASSICPG_SERVICE, CLASSICPG_SERVICEFILE,
// CLASSICPG_CONNECT_TIMEOUT) and then to a default.
//
// If a password is not supplied it will attempt to read the .pgpass file
// designated by the passfile setting.
func ParseConfig(connString string) (*Config, error) {
	settings := defaultSettings()
	addEnvSettings(settings)

	if connString != "" {
		var parsed map[string]string
		var err error
		if strings.HasPrefix(connString, "postgres://") || strings.HasPrefix(connString, "postgresql://") {
			parsed, err = parseURLSettings(connString)
			if err != nil {
				return nil, newParseConfigError(connString, "failed to parse as URL", err)
			}
		} else {
			parsed, err = parseKeywordValueSettings(connString)
			if err != nil {
				return nil, newParseConfigError(connString, "failed to parse as keyword/value", err)
			}
		}
		for k, v := range parsed {
			settings[k] = v
		}
	}

	if service, present := settings["service"]; present {
		serviceSettings, err := parseServiceSettings(settings["servicefile"], service)
		if err != nil {
			return nil, newParseConfigError(connString, "failed to read service", err)
		}
		// Settings from the connection string take precedence over the
		// service file.
		for k, v := range serviceSettings {
			if _, present := settings[k]; !present {
				settings[k] = v
			}
		}
	}

	config := &Config{
		Host:                 settings["host"],
		Database:             settings["database"],
		User:                 settings["user"],
		Password:             settings["password"],
		Autocommit:           true,
		createdByParseConfig: true,
	}

	port, err := parsePort(settings["port"])
	if err != nil {
		return nil, newParseConfigError(connString, "invalid port", err)
	}
	config.Port = port

	if timeout, present := settings["connect_timeout"]; present {
		seconds, err := strconv.ParseInt(timeout, 10, 64)
		if err != nil || seconds < 0 {
			return nil, newParseConfigError(connString, "invalid connect_timeout", err)
		}
		config.ConnectTimeout = time.Duration(seconds) * time.Second
	}

	if config.Database == "" {
		config.Database = config.User
	}

	if config.Password == "" {
		if passfile, err := pgpassfile.ReadPassfile(settings["passfile"]); err == nil {
			config.Password = passfile.FindPassword(config.Host, strconv.Itoa(int(config.Port)), config.Database, config.User)
		}
	}

	return config, nil
}

func defaultSettings() map[string]string {
	settings := map[string]string{
		"host": "localhost",
		"port": "5432",
	}

	if osUser, err := user.Current(); err == nil {
		settings["user"] = osUser.Username
		settings["passfile"] = filepath.Join(osUser.HomeDir, ".pgpass")
		settings["servicefile"] = filepath.Join(osUser.HomeDir, ".pg_service.conf")
	}

	return settings
}

var envToSetting = map[string]string{
	"CLASSICPG_HOST":            "host",
	"CLASSICPG_PORT":            "port",
	"CLASSICPG_DATABASE":        "database",
	"CLASSICPG_USER":            "user",
	"CLASSICPG_PASSWORD":        "password",
	"CLASSICPG_PASSFILE":        "passfile",
	"CLASSICPG_SERVICE":         "service",
	"CLASSICPG_SERVICEFILE":     "servicefile",
	"CLASSICPG_CONNECT_TIMEOUT": "connect_timeout",
}

func addEnvSettings(settings map[string]string) {
	for envname, realname := range envToSetting {
		if value := os.Getenv(envname); value != "" {
			settings[realname] = value
		}
	}
}

func parseURLSettings(connString string) (map[string]string, error) {
	settings := make(map[string]string)

	parsedURL, err := url.Parse(connString)
	if err != nil {
		return nil, err
	}

	if parsedURL.User != nil {
		settings["user"] = parsedURL.User.Username()
		if password, present := parsedURL.User.Password(); present {
			settings["password"] = password
		}
	}

	if host := parsedURL.Hostname(); host != "" {
		settings["host"] = host
	}
	if port := parsedURL.Port(); port != "" {
		settings["port"] = port
	}

	if database := strings.TrimLeft(parsedURL.Path, "/"); database != "" {
		settings["database"] = database
	}

	for k, v := range parsedURL.Query() {
		if k == "dbname" {
			k = "database"
		}
		settings[k] = v[0]
	}

	return settings, nil
}

func parseKeywordValueSettings(s string) (map[string]string, error) {
	settings := make(map[string]string)

	for len(s) > 0 {
		var key, val string
		eqIdx := strings.IndexRune(s, '=')
		if eqIdx < 0 {
			return nil, fmt.Errorf("invalid keyword/value")
		}

		key = strings.Trim(s[:eqIdx], " \t\n\r\v\f")
		s = strings.TrimLeft(s[eqIdx+1:], " \t\n\r\v\f")
		if len(s) == 0 {
		} else if s[0] != '\'' {
			end := 0
			for ; end < len(s); end++ {
				if s[end] == ' ' {
					break
				}
				if s[end] == '\\' {
					end++
					if end == len(s) {
						return nil, fmt.Errorf("invalid backslash")
					}
				}
			}
			val = strings.ReplaceAll(strings.ReplaceAll(s[:end], "\\\\", "\\"), "\\'", "'")
			if end == len(s) {
				s = ""
			} else {
				s = s[end+1:]
			}
		} else { // quoted string
			s = s[1:]
			end := 0
			for ; end < len(s); end++ {
				if s[end] == '\'' {
					break
				}
				if s[end] == '\\' {
					end++
				}
			}
			if end == len(s) {
				return nil, fmt.Errorf("unterminated quoted string in connection info string")
			}
			val = strings.ReplaceAll(strings.ReplaceAll(s[:end], "\\\\", "\\"), "\\'", "'")
			if end == len(s) {
				s = ""
			} else {
				s = s[end+1:]
			}
		}

		if key == "" {
			return nil, fmt.Errorf("invalid keyword/value")
		}
		if key == "dbname" {
			key = "database"
		}

		settings[key] = val
	}

	return settings, nil
}

func parseServiceSettings(servicefilePath, serviceName string) (map[string]string, error) {
	servicefile, err := pgservicefile.ReadServicefile(servicefilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read service file: %v", servicefilePath)
	}

	service, err := servicefile.GetService(serviceName)
	if err != nil {
		return nil, fmt.Errorf("unable to find service: %v", serviceName)
	}

	settings := make(map[string]string, len(service.Settings))
	for k, v := range service.Settings {
		// The service file can use the canonical libpq names; map the few
		// that differ from this driver's settings.
		if k == "dbname" {
			k = "database"
		}
		settings[k] = v
	}

	return settings, nil
}

func parsePort(s string) (uint16, error) {
	port, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, err
	}
	if port < 1 {
		return 0, fmt.Errorf("outside range")
	}
	return uint16(port), nil
}

// NetworkAddress converts a classic host and port into network and address
// suitable for net.Dial.
func NetworkAddress(host string, port uint16) (network, address string) {
	if strings.HasPrefix(host, "/") {
		network = "unix"
		address = filepath.Join(host, ".s.PGSQL.") + strconv.FormatInt(int64(port), 10)
	} else {
		network = "tcp"
		address = net.JoinHostPort(host, strconv.Itoa(int(port)))
	}
	return network, address
}
