package blog_test

import (
	"testing"
	"time"

	blog "github.com/goliatone/go-blog"
	"github.com/stretchr/testify/assert"
)

func TestParseLifetime(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
		ok    bool
	}{
		{"15s", 15 * time.Second, true},
		{"10m", 10 * time.Minute, true},
		{"3h", 3 * time.Hour, true},
		{"2d", 48 * time.Hour, true},
		{"2w", 14 * 24 * time.Hour, true},
		{"1h30m", 90 * time.Minute, true},
		{"1w2d3h4m5s", 7*24*time.Hour + 2*24*time.Hour + 3*time.Hour + 4*time.Minute + 5*time.Second, true},
		{"0s", 0, true},
		{"", 0, false},
		{"90", 0, false},
		{"1x", 0, false},
		{"1m1h", 0, false},
		{"-1h", 0, false},
		{"1.5h", 0, false},
		{"soon", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := blog.ParseLifetime(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLifetimeOrDefault(t *testing.T) {
	assert.Equal(t, 2*time.Hour, blog.LifetimeOrDefault("2h", time.Minute))
	assert.Equal(t, time.Minute, blog.LifetimeOrDefault("", time.Minute))
	assert.Equal(t, time.Minute, blog.LifetimeOrDefault("bogus", time.Minute))
}
