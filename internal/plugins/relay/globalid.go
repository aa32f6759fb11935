package relay

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/hanpama/plugraph/internal/core"
)

var (
	// ErrMalformedGlobalID is returned for tokens that do not decode to "typename:id".
	ErrMalformedGlobalID = errors.New("malformed global ID")
	// ErrUnknownType is returned when a decoded typename is not a registered type.
	ErrUnknownType = errors.New("unknown type in global ID")
	// ErrUnexpectedType is returned when an argument only accepts IDs of some types.
	ErrUnexpectedType = errors.New("unexpected type in global ID")
)

// GlobalID is a decoded global object identifier.
type GlobalID struct {
	TypeName string
	ID       string
}

func (g GlobalID) String() string { return EncodeGlobalID(g.TypeName, g.ID) }

// TypedID lets resolvers return a raw id together with the ref of its type;
// the type name is looked up when the ID is encoded.
type TypedID struct {
	Type core.OutputType
	ID   any
}

// EncodeGlobalID encodes typename and id into an opaque token.
func EncodeGlobalID(typename, id string) string {
	return base64.StdEncoding.EncodeToString([]byte(typename + ":" + id))
}

// DecodeGlobalID reverses EncodeGlobalID. Only tokens EncodeGlobalID can
// produce are accepted.
func DecodeGlobalID(token string) (GlobalID, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return GlobalID{}, fmt.Errorf("%w: %q is not base64", ErrMalformedGlobalID, token)
	}
	typename, id, ok := strings.Cut(string(raw), ":")
	if !ok || typename == "" {
		return GlobalID{}, fmt.Errorf("%w: %q", ErrMalformedGlobalID, token)
	}
	if EncodeGlobalID(typename, id) != token {
		return GlobalID{}, fmt.Errorf("%w: %q is not canonical", ErrMalformedGlobalID, token)
	}
	return GlobalID{TypeName: typename, ID: id}, nil
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case fmt.Stringer:
		return id.String()
	default:
		return fmt.Sprint(v)
	}
}
