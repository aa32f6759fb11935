// Package events defines the payloads published on an eventbus.Bus by schema
// builds and by the HTTP server.
package events

import (
	"net/http"
	"time"
)

// BuildStart is emitted when a schema builder enters the resolving state.
type BuildStart struct {
	BuildID string
	Plugins []string
}

// BuildFinish is emitted once a build completes or fails.
type BuildFinish struct {
	BuildID  string
	Types    int
	Err      error
	Duration time.Duration
}

// PluginHookFailed is emitted when a plugin hook or deferred callback aborts a build.
type PluginHookFailed struct {
	BuildID string
	Plugin  string
	Hook    string
	Err     error
}

// HTTPStart is emitted when the server receives a request. The request
// context carries its request ID.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is emitted after the response has been written.
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Duration time.Duration
}
