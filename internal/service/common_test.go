package service

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestStringPreview(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		limit int
		want  string
	}{
		{name: "short", body: "  hello  ", limit: 10, want: "hello"},
		{name: "ascii", body: "hello world", limit: 8, want: "hello..."},
		{name: "rune boundary", body: "héllo wörld", limit: 5, want: "h..."},
		{name: "tiny limit", body: "ñandú", limit: 2, want: "ñ"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := stringPreview(tc.body, tc.limit)
			assert.Equal(t, tc.want, got)
			assert.True(t, utf8.ValidString(got))
			assert.LessOrEqual(t, len(got), tc.limit)
		})
	}
}
