package relay

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGlobalIDRoundTrip(t *testing.T) {
	pairs := []GlobalID{
		{TypeName: "User", ID: "1"},
		{TypeName: "Point", ID: "a:b:c"},
		{TypeName: "Game", ID: ""},
		{TypeName: "Team", ID: "팀-7"},
	}
	for _, want := range pairs {
		token := EncodeGlobalID(want.TypeName, want.ID)
		require.Equal(t, token, EncodeGlobalID(want.TypeName, want.ID), "encoding is deterministic")
		got, err := DecodeGlobalID(token)
		require.NoError(t, err)
		require.Equal(t, want, got)
		require.Equal(t, token, got.String())
	}
}

func TestDecodeMalformedGlobalID(t *testing.T) {
	tokens := map[string]string{
		"not base64":      "not base64!",
		"no separator":    base64.StdEncoding.EncodeToString([]byte("User1")),
		"empty typename":  base64.StdEncoding.EncodeToString([]byte(":1")),
		"missing padding": "VXNlcjoxMg",
		"url alphabet":    base64.URLEncoding.EncodeToString([]byte("User:>>?")),
		"empty":           "",
		"raw pair":        "User:1",
		"leading space":   " " + EncodeGlobalID("User", "1"),
	}
	for name, token := range tokens {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeGlobalID(token)
			require.ErrorIs(t, err, ErrMalformedGlobalID)
		})
	}
}
