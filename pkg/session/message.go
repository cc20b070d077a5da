package session

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// parseItems decodes an inbound {"items": [...]} message. ok is false when
// the message is not a JSON object with an items list. Elements that are
// not integers are dropped.
func parseItems(data []byte) (items []int64, ok bool) {
	var msg map[string]json.RawMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, false
	}
	raw, found := msg["items"]
	if !found {
		return nil, false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, false
	}
	items = make([]int64, 0, len(elems))
	for _, e := range elems {
		n, err := strconv.ParseInt(string(bytes.TrimSpace(e)), 10, 64)
		if err != nil {
			continue
		}
		items = append(items, n)
	}
	return items, true
}
