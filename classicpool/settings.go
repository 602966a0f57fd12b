package classicpool

import (
	"net/url"
	"strings"
)

// poolSetting extracts a pool-level setting from the connection string. Pool
// settings ride along in the same URL query or keyword/value text as the
// connection settings but are consumed here rather than by the engine.
func poolSetting(connString, key string) (string, bool) {
	if strings.HasPrefix(connString, "postgres://") || strings.HasPrefix(connString, "postgresql://") {
		parsedURL, err := url.Parse(connString)
		if err != nil {
			return "", false
		}
		values := parsedURL.Query()
		if !values.Has(key) {
			return "", false
		}
		return values.Get(key), true
	}

	for _, field := range strings.Fields(connString) {
		k, v, ok := strings.Cut(field, "=")
		if ok && k == key {
			return v, true
		}
	}
	return "", false
}
