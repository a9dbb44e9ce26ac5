// Package task runs named units of work either inline or in the background
// and tracks their lifecycle.
package task

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
)

// ErrUnknownKind is returned for a task kind with no registered handler.
var ErrUnknownKind = eris.New("task: unknown kind")

// ProgressFunc reports completion percentage in [0,100].
type ProgressFunc func(pct int)

// Handler executes one task kind. The same handler serves the synchronous
// path and both background backends.
type Handler func(ctx context.Context, input json.RawMessage, report ProgressFunc) (any, error)

// Registry maps task kinds to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds or replaces the handler for kind.
func (r *Registry) Register(kind string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
}

// Has reports whether kind has a handler.
func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[kind]
	return ok
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Run executes kind inline and returns the handler's result.
func (r *Registry) Run(ctx context.Context, kind string, input any) (any, error) {
	raw, err := encodeInput(input)
	if err != nil {
		return nil, err
	}
	return r.handle(ctx, kind, raw, nil)
}

func (r *Registry) handle(ctx context.Context, kind string, input json.RawMessage, report ProgressFunc) (any, error) {
	r.mu.RLock()
	h, ok := r.handlers[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, eris.Wrapf(ErrUnknownKind, "task: kind %q", kind)
	}
	if report == nil {
		report = func(int) {}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h(ctx, input, report)
}

func encodeInput(input any) (json.RawMessage, error) {
	switch v := input.(type) {
	case nil:
		return json.RawMessage("{}"), nil
	case json.RawMessage:
		return v, nil
	case []byte:
		return json.RawMessage(v), nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, eris.Wrap(err, "task: encode input")
		}
		return raw, nil
	}
}

// Decode unmarshals a handler input into T.
func Decode[T any](input json.RawMessage) (T, error) {
	var v T
	if len(input) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(input, &v); err != nil {
		return v, eris.Wrap(err, "task: decode input")
	}
	return v, nil
}
