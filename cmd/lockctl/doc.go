// Command lockctl runs the ws-lock collaborative locking service.
//
// Clients open a WebSocket on /ws/locks and send the set of items they want
// to edit exclusively. The server reconciles that set against the database,
// grants the free ones and broadcasts every change to the connections that
// may see the item's category.
//
// # Quick Start
//
//	# Create the schema and load users, groups and items
//	lockctl db migrate
//	lockctl seed fixtures.yml
//
//	# Start the server and mint a token for user 1
//	lockctl server
//	lockctl token 1
//
// Without DATABASE_URL the server can run on an in-memory store:
//
//	lockctl server --fixtures fixtures.yml
//
// # Environment Variables
//
//   - DATABASE_URL: PostgreSQL connection string
//   - WSLOCK_CONFIG_PATH: directory holding wslock.yml (default: /etc/wslock)
//   - WSLOCK_JWT_SECRET: HMAC key for bearer tokens
//   - WSLOCK_BROADCAST_BACKEND: memory, redis or amqp
//   - WSLOCK_REDIS_PASSWORD: password for the Redis broadcast backend
//   - WSLOCK_MAX_MESSAGE_BYTES: largest inbound socket message (default 1 MiB)
//   - WSLOCK_LOG_LEVEL: Log level (debug, info, warn, error)
//   - WSLOCK_AUDIT_ENABLED: set to false to disable audit lines
//   - AUDIT_DATABASE_URL: persist audit events to a messages table
//   - WSLOCK_MIGRATIONS_PATH: migrations directory when built without embed_migrations
//   - WSLOCK_VERSION_DISPLAY: version reported by GET /
//   - OTEL_EXPORTER_OTLP_ENDPOINT: export traces over OTLP/HTTP
//
// Run "lockctl configuration show" for every setting and its source.
package main
