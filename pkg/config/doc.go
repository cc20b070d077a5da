// Package config loads the ws-lock server configuration.
//
// # Configuration Sources
//
// Values are resolved in this order, later sources winning:
//
//   - Built-in defaults
//   - The YAML file $WSLOCK_CONFIG_PATH/wslock.yml (default /etc/wslock/wslock.yml)
//   - WSLOCK_* environment variables, e.g. WSLOCK_PORT or WSLOCK_JWT_SECRET
//
// The source of every attribute is tracked and shown by
// "lockctl configuration show". DATABASE_URL is read by package db.
package config
