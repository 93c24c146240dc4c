package engine

import "fmt"

// Handler is a feedback side effect for one event type.
type Handler func(data any) error

// Handlers maps event types to their feedback handlers.
type Handlers map[EventType]Handler

// Handle adapts a typed callback. A nil payload is passed as T's zero value;
// any other payload that is not a T is reported as an error.
func Handle[T any](fn func(T) error) Handler {
	return func(data any) error {
		if data == nil {
			var zero T
			return fn(zero)
		}
		v, ok := data.(T)
		if !ok {
			var zero T
			return fmt.Errorf("handler expects %T, got %T", zero, data)
		}
		return fn(v)
	}
}

// Do adapts a callback that ignores the payload.
func Do(fn func()) Handler {
	return func(any) error {
		fn()
		return nil
	}
}
