// Package env reads the few FIELDSALES_* variables needed before the
// envconfig-backed config loads.
package env

import "os"

const prefix = "FIELDSALES_"

// Get returns the value of the prefixed variable or a fallback.
func Get(key, fallback string) string {
	if val := os.Getenv(prefix + key); val != "" {
		return val
	}
	return fallback
}
