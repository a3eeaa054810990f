// Package platform reads device state owned by the host device-management
// platform: connectivity, display names and current tag values.
package platform

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound marks device state the platform does not have.
var ErrNotFound = errors.New("not found")

// Connection is the host's view of device connectivity.
type Connection struct {
	Online   bool      `json:"online" yaml:"online"`
	LastSeen time.Time `json:"last_seen" yaml:"last_seen"` // zero when unknown
}

// Platform is the read-only device state surface.
type Platform interface {
	// Connection returns the device's connectivity state.
	Connection(ctx context.Context, agentID string) (Connection, error)

	// AgentName returns the device's display name.
	AgentName(ctx context.Context, agentID string) (string, error)

	// TagValues returns the latest aggregate of the device's tag values.
	TagValues(ctx context.Context, agentID string) (map[string]any, error)
}

// ParseTimestamp accepts RFC 3339 strings (with "Z" or an offset), numeric
// strings and unix seconds as float64/int64. Empty input yields the zero time.
func ParseTimestamp(v any) (time.Time, error) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, nil
		}
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return ts.UTC(), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse timestamp %q", s)
		}
		return unixSeconds(f), nil
	case float64:
		return unixSeconds(x), nil
	case int64:
		return time.Unix(x, 0).UTC(), nil
	case int:
		return time.Unix(int64(x), 0).UTC(), nil
	case time.Time:
		return x.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("parse timestamp: unsupported type %T", v)
	}
}

func unixSeconds(f float64) time.Time {
	sec := int64(f)
	return time.Unix(sec, int64((f-float64(sec))*1e9)).UTC()
}
