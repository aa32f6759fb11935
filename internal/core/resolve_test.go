package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type base struct {
	CreatedAt string
}

type team struct {
	base
	ID       string `json:"teamId"`
	Name     string
	internal string
}

func TestPropertyResolver(t *testing.T) {
	ctx := context.Background()
	tm := &team{base: base{CreatedAt: "today"}, ID: "t1", Name: "Reds", internal: "x"}

	tests := []struct {
		name     string
		source   any
		property string
		want     any
	}{
		{"json tag", tm, "teamId", "t1"},
		{"case insensitive name", tm, "name", "Reds"},
		{"promoted field", tm, "createdAt", "today"},
		{"unexported field", tm, "internal", nil},
		{"missing", tm, "score", nil},
		{"map", map[string]any{"score": 3}, "score", 3},
		{"typed map", map[string]int{"score": 4}, "score", 4},
		{"nil pointer", (*team)(nil), "name", nil},
		{"nil", nil, "name", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PropertyResolver(tt.property)(ctx, tt.source, nil, nil)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
