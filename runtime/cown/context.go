package cown

import (
	"context"
	"reflect"
)

// BehaviorKey keys the currently executing behavior in a context.
var BehaviorKey = KeyOf[*Behavior]()

// WithBehavior returns a context carrying the supplied behavior. Workers
// install it before invoking a body so nested scheduling can be told apart
// from top-level scheduling.
func WithBehavior(ctx context.Context, b *Behavior) context.Context {
	return context.WithValue(ctx, BehaviorKey, b)
}

// Current returns the behavior executing in this context, or nil outside a
// body.
func Current(ctx context.Context) *Behavior {
	return ContextValue[*Behavior](ctx)
}

// ContextValue returns the value of the provided type from the context.
func ContextValue[T any](ctx context.Context) T {
	key := KeyOf[T]()
	if value := ctx.Value(key); value != nil {
		return value.(T)
	}
	var t T
	return t
}

// KeyOf returns the reflect.Type of the provided type.
func KeyOf[T any]() reflect.Type {
	var a T
	return reflect.TypeOf(a)
}
