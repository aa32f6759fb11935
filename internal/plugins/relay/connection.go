package relay

import (
	"encoding/base64"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ErrInvalidCursor is returned for cursors not produced by OffsetToCursor,
// and for negative first/last arguments.
var ErrInvalidCursor = errors.New("invalid connection cursor")

const cursorPrefix = "arrayconnection:"

// ConnectionArguments are the parsed first/last/before/after arguments.
type ConnectionArguments struct {
	First  *int
	Last   *int
	Before *string
	After  *string
}

// ParseConnectionArgs reads connection arguments from resolver args.
func ParseConnectionArgs(args map[string]any) (ConnectionArguments, error) {
	var out ConnectionArguments
	var err error
	if out.First, err = intArg(args, "first"); err != nil {
		return out, err
	}
	if out.Last, err = intArg(args, "last"); err != nil {
		return out, err
	}
	out.Before = stringArg(args, "before")
	out.After = stringArg(args, "after")
	return out, nil
}

func intArg(args map[string]any, name string) (*int, error) {
	var n int
	switch v := args[name].(type) {
	case nil:
		return nil, nil
	case int:
		n = v
	case int32:
		n = int(v)
	case int64:
		n = int(v)
	case float64:
		n = int(v)
	default:
		return nil, fmt.Errorf("argument %s: expected an integer, got %T", name, v)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: argument %s must not be negative", ErrInvalidCursor, name)
	}
	return &n, nil
}

func stringArg(args map[string]any, name string) *string {
	switch v := args[name].(type) {
	case string:
		return &v
	case GlobalID:
		s := v.String()
		return &s
	}
	return nil
}

// OffsetToCursor encodes a list offset as a cursor.
func OffsetToCursor(offset int) string {
	return base64.StdEncoding.EncodeToString([]byte(cursorPrefix + strconv.Itoa(offset)))
}

// CursorToOffset decodes a cursor produced by OffsetToCursor.
func CursorToOffset(cursor string) (int, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCursor, cursor)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(string(raw), cursorPrefix))
	if err != nil || !strings.HasPrefix(string(raw), cursorPrefix) || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCursor, cursor)
	}
	return n, nil
}

// ResolveArrayConnection slices items according to args and wraps the page
// into a Connection with offset cursors.
func ResolveArrayConnection(args ConnectionArguments, items []any) (*Connection, error) {
	start, end := 0, len(items)
	lower, upper := 0, len(items)
	if args.After != nil {
		off, err := CursorToOffset(*args.After)
		if err != nil {
			return nil, err
		}
		lower = min(off+1, len(items))
		start = lower
	}
	if args.Before != nil {
		off, err := CursorToOffset(*args.Before)
		if err != nil {
			return nil, err
		}
		upper = max(min(off, len(items)), start)
		end = upper
	}
	if args.First != nil {
		end = min(end, start+*args.First)
	}
	if args.Last != nil {
		start = max(start, end-*args.Last)
	}

	conn := &Connection{
		Edges: make([]*Edge, 0, end-start),
		PageInfo: &PageInfo{
			HasPreviousPage: args.Last != nil && start > lower,
			HasNextPage:     args.First != nil && end < upper,
		},
	}
	for i := start; i < end; i++ {
		conn.Edges = append(conn.Edges, &Edge{Cursor: OffsetToCursor(i), Node: items[i]})
	}
	if len(conn.Edges) > 0 {
		first, last := conn.Edges[0].Cursor, conn.Edges[len(conn.Edges)-1].Cursor
		conn.PageInfo.StartCursor = &first
		conn.PageInfo.EndCursor = &last
	}
	return conn, nil
}

// toList converts any slice into []any.
func toList(v any) ([]any, error) {
	if items, ok := v.([]any); ok {
		return items, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("relay: expected a list, got %T", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// ToList converts a typed slice into the form ResolveArrayConnection takes.
func ToList[T any](items []T) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
