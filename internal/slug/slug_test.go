package slug_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/inkwell-press/inkwell/internal/slug"
)

func TestMake(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"punctuation and double space", "Hello, World!  Test", "hello-world-test"},
		{"already clean", "simple-slug", "simple-slug"},
		{"uppercase", "Go Rocks", "go-rocks"},
		{"repeated hyphens", "one -- two", "one-two"},
		{"leading and trailing noise", "  ...Edge Case!  ", "edge-case"},
		{"only punctuation", "!!!", ""},
		{"empty", "", ""},
		{"digits kept", "Top 10 Tips (2024)", "top-10-tips-2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(slug.Make(tt.title), qt.Equals, tt.want)
		})
	}
}
