// Package idgen wraps UUID generation behind a stubbable function.
// It lives under internal because callers must treat identifiers as
// opaque strings and never rely on their shape.
package idgen
