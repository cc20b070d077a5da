package audit

import (
	"fmt"
	"strconv"
)

// ConnectEvent is recorded when a connection passes or fails the gate
type ConnectEvent struct {
	UserID       string
	ClientIP     string
	ConnID       string
	Categories   []string
	Success      bool
	ErrorMessage string
}

func (e ConnectEvent) MessageID() string {
	return "connect"
}

func (e ConnectEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s connected and subscribed to %d categories", e.UserID, len(e.Categories))
	}
	msg := fmt.Sprintf("%s was refused a lock connection", e.UserID)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e ConnectEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e ConnectEvent) Facility() int {
	return FacilityAuthPriv
}

func (e ConnectEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDAuth: {
			"user": e.UserID,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": "connect",
			"result":    result(e.Success),
		},
	}
	if e.ConnID != "" {
		sd[SDIDClient]["connection"] = e.ConnID
	}
	return sd
}

// LockEvent is recorded for every lock acquired or released
type LockEvent struct {
	UserID   string
	ClientIP string
	ConnID   string
	ItemID   int64
	Category string
	Locked   bool
}

func (e LockEvent) MessageID() string {
	return "lock"
}

func (e LockEvent) operation() string {
	if e.Locked {
		return "acquire"
	}
	return "release"
}

func (e LockEvent) Message() string {
	if e.Locked {
		return fmt.Sprintf("%s locked item %d", e.UserID, e.ItemID)
	}
	return fmt.Sprintf("%s unlocked item %d", e.UserID, e.ItemID)
}

func (e LockEvent) Severity() Severity {
	return SeverityInfo
}

func (e LockEvent) Facility() int {
	return FacilityAuthPriv
}

func (e LockEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDAuth: {
			"user": e.UserID,
		},
		SDIDSubject: {
			"item":     strconv.FormatInt(e.ItemID, 10),
			"category": e.Category,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": e.operation(),
			"result":    "success",
		},
	}
	if e.ConnID != "" {
		sd[SDIDClient]["connection"] = e.ConnID
	}
	return sd
}

// DisconnectEvent is recorded when a connection closes
type DisconnectEvent struct {
	UserID       string
	ClientIP     string
	ConnID       string
	Released     int
	Success      bool
	ErrorMessage string
}

func (e DisconnectEvent) MessageID() string {
	return "disconnect"
}

func (e DisconnectEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s disconnected, released %d locks", e.UserID, e.Released)
	}
	msg := fmt.Sprintf("%s disconnected but its locks could not be released", e.UserID)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e DisconnectEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityError
}

func (e DisconnectEvent) Facility() int {
	return FacilityAuthPriv
}

func (e DisconnectEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDAuth: {
			"user": e.UserID,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": "disconnect",
			"released":  strconv.Itoa(e.Released),
			"result":    result(e.Success),
		},
	}
	if e.ConnID != "" {
		sd[SDIDClient]["connection"] = e.ConnID
	}
	return sd
}

// ClearEvent is recorded when an operator clears locks from the CLI
type ClearEvent struct {
	Operator string
	UserID   int64 // 0 for all users
	Released int
}

func (e ClearEvent) MessageID() string {
	return "clear"
}

func (e ClearEvent) Message() string {
	if e.UserID == 0 {
		return fmt.Sprintf("%s cleared %d locks of all users", e.Operator, e.Released)
	}
	return fmt.Sprintf("%s cleared %d locks of user %d", e.Operator, e.Released, e.UserID)
}

func (e ClearEvent) Severity() Severity {
	return SeverityNotice
}

func (e ClearEvent) Facility() int {
	return FacilityAuth
}

func (e ClearEvent) StructuredData() map[string]map[string]string {
	target := "all"
	if e.UserID != 0 {
		target = strconv.FormatInt(e.UserID, 10)
	}
	return map[string]map[string]string{
		SDIDAuth: {
			"user": e.Operator,
		},
		SDIDSubject: {
			"owner": target,
		},
		SDIDAction: {
			"operation": "clear",
			"released":  strconv.Itoa(e.Released),
			"result":    "success",
		},
	}
}
