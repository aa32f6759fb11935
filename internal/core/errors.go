package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateRegistration is returned when a ref or field name is registered twice.
	ErrDuplicateRegistration = errors.New("duplicate registration")
	// ErrUnresolvedRef is returned when a referenced type never gets a config.
	ErrUnresolvedRef = errors.New("unresolved ref")
	// ErrNameConflict is returned when two refs claim the same schema name.
	ErrNameConflict = errors.New("name conflict")
	// ErrTypeMismatch is returned when a ref of the wrong kind is used, e.g. an
	// input object as a field return type.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrPluginHook wraps every failure raised by a plugin hook or deferred callback.
	ErrPluginHook = errors.New("plugin hook failure")
	// ErrBuilderSealed is the panic value for registrations after the build finished.
	ErrBuilderSealed = errors.New("schema builder is sealed")
	// ErrBuildInProgress is returned when ToSchema is re-entered from a hook.
	ErrBuildInProgress = errors.New("schema build already in progress")
)

// RefError locates a registration problem.
type RefError struct {
	Kind   error
	Ref    Ref
	Name   string
	Detail string
}

func (e *RefError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Name != "" {
		fmt.Fprintf(&b, " %q", e.Name)
	}
	if !e.Ref.IsZero() {
		fmt.Fprintf(&b, " (%s)", e.Ref)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *RefError) Unwrap() error { return e.Kind }

// PluginHookError reports which plugin hook or deferred callback aborted a
// build. Location names the type or field a callback was waiting on.
type PluginHookError struct {
	Plugin   string
	Hook     string
	Location string
	Err      error
}

func (e *PluginHookError) Error() string {
	hook := e.Hook
	if e.Plugin != "" {
		hook = e.Plugin + "." + hook
	}
	if e.Location != "" {
		hook += " " + e.Location
	}
	return fmt.Sprintf("%s: %s: %v", ErrPluginHook, hook, e.Err)
}

func (e *PluginHookError) Is(target error) bool { return target == ErrPluginHook }

func (e *PluginHookError) Unwrap() error { return e.Err }

// BuildError collects every problem found before a build was aborted.
type BuildError []error

func (e BuildError) Error() string {
	msg := "schema build failed:\n"
	for _, err := range e {
		msg += "- " + err.Error() + "\n"
	}
	return msg
}

func (e BuildError) Unwrap() []error { return e }

// Common error constructors; keep messages stable, tests match on them.

func errDuplicateRef(ref Ref, name string) error {
	return &RefError{Kind: ErrDuplicateRegistration, Ref: ref, Name: name, Detail: "ref already has a type config"}
}

func errDuplicateField(typeName, fieldName string) error {
	return &RefError{Kind: ErrDuplicateRegistration, Name: typeName + "." + fieldName, Detail: "field defined more than once"}
}

func errFieldRefReused(ref Ref, first, second string) error {
	return &RefError{Kind: ErrDuplicateRegistration, Ref: ref, Name: second, Detail: "field ref already used as " + first}
}

func errNameTaken(ref, owner Ref, name string) error {
	return &RefError{Kind: ErrNameConflict, Ref: ref, Name: name, Detail: "name already bound to " + owner.String()}
}

func errRenamed(ref Ref, from, to string) error {
	return &RefError{Kind: ErrNameConflict, Ref: ref, Name: to, Detail: "ref already bound to " + strconvQuote(from)}
}

func errUnresolved(ref Ref, name, detail string) error {
	return &RefError{Kind: ErrUnresolvedRef, Ref: ref, Name: name, Detail: detail}
}

func errMismatch(name, detail string) error {
	return &RefError{Kind: ErrTypeMismatch, Name: name, Detail: detail}
}

func strconvQuote(s string) string { return fmt.Sprintf("%q", s) }
