// Package audit records connection and lock activity.
//
// Events are written as RFC5424 syslog lines and, when
// AUDIT_DATABASE_URL is set, persisted to the messages table.
//
// # Event Types
//
//   - Connect events (accepted or refused at the gate)
//   - Lock events (one per acquired or released lock)
//   - Disconnect events (with the number of locks released on close)
//   - Clear events (operator release of stuck locks)
//
// # Usage
//
//	audit.Log(audit.ConnectEvent{UserID: "7", ClientIP: ip, Success: true})
//
// Set WSLOCK_AUDIT_ENABLED=false to turn audit logging off.
package audit
