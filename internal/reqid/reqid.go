// Package reqid carries HTTP request IDs in contexts.
package reqid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the response header carrying the request ID.
const Header = "X-Request-Id"

type key struct{}

// NewContext returns a copy of parent carrying id, or a new random ID when
// id is empty. It also returns the ID.
func NewContext(parent context.Context, id string) (context.Context, string) {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(parent, key{}, id), id
}

// FromContext extracts the request ID from ctx.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(key{}).(string)
	return id, ok
}
