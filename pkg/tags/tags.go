package tags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Tags is a typed view of a Store bound to one scope (device).
// Missing tags and JSON null read as the zero value.
type Tags struct {
	store Store
	scope string
}

// New binds store to scope.
func New(store Store, scope string) *Tags {
	return &Tags{store: store, scope: scope}
}

// Scope returns the scope this view reads and writes.
func (t *Tags) Scope() string { return t.scope }

func (t *Tags) get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := t.store.Get(ctx, t.scope, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode tag %q: %w", key, err)
	}
	return true, nil
}

func (t *Tags) set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode tag %q: %w", key, err)
	}
	return t.store.Set(ctx, t.scope, key, raw)
}

// Bool reads a boolean tag.
func (t *Tags) Bool(ctx context.Context, key string) (bool, error) {
	var v bool
	_, err := t.get(ctx, key, &v)
	return v, err
}

// SetBool writes a boolean tag.
func (t *Tags) SetBool(ctx context.Context, key string, v bool) error {
	return t.set(ctx, key, v)
}

// Int reads an integer tag.
func (t *Tags) Int(ctx context.Context, key string) (int64, error) {
	var v float64
	_, err := t.get(ctx, key, &v)
	return int64(v), err
}

// Incr adds one to an integer tag and returns the new value.
func (t *Tags) Incr(ctx context.Context, key string) (int64, error) {
	v, err := t.Int(ctx, key)
	if err != nil {
		return 0, err
	}
	v++
	if err := t.set(ctx, key, v); err != nil {
		return 0, err
	}
	return v, nil
}

// String reads a string tag.
func (t *Tags) String(ctx context.Context, key string) (string, error) {
	var v string
	_, err := t.get(ctx, key, &v)
	return v, err
}

// SetString writes a string tag.
func (t *Tags) SetString(ctx context.Context, key, v string) error {
	return t.set(ctx, key, v)
}

// Time reads a timestamp tag written by SetTime. Unix seconds are also
// accepted. A missing tag returns the zero time.
func (t *Tags) Time(ctx context.Context, key string) (time.Time, error) {
	var v any
	ok, err := t.get(ctx, key, &v)
	if err != nil || !ok {
		return time.Time{}, err
	}
	switch x := v.(type) {
	case string:
		ts, err := time.Parse(time.RFC3339Nano, x)
		if err != nil {
			return time.Time{}, fmt.Errorf("decode tag %q: %w", key, err)
		}
		return ts, nil
	case float64:
		sec := int64(x)
		return time.Unix(sec, int64((x-float64(sec))*1e9)).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("decode tag %q: unexpected %T", key, v)
	}
}

// SetTime writes a timestamp tag as RFC 3339 in UTC.
func (t *Tags) SetTime(ctx context.Context, key string, ts time.Time) error {
	return t.set(ctx, key, ts.UTC().Format(time.RFC3339Nano))
}

// Clear removes the given tags.
func (t *Tags) Clear(ctx context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		if err := t.store.Delete(ctx, t.scope, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// All returns every tag in the scope decoded into Go values.
func (t *Tags) All(ctx context.Context) (map[string]any, error) {
	raw, err := t.store.List(ctx, t.scope)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			decoded = string(v)
		}
		out[k] = decoded
	}
	return out, nil
}
