package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPrefixAny(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		prefixes []string
		want     bool
	}{
		{"exact match", "8-K", []string{"8-K", "S-3"}, true},
		{"amended form matches base", "8-K/A", []string{"8-K"}, true},
		{"no match", "S-1", []string{"8-K", "S-3"}, false},
		{"empty prefix ignored", "anything", []string{""}, false},
		{"empty list", "8-K", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasPrefixAny(tt.s, tt.prefixes))
		})
	}
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseWhitespace("  a \n\t b   c  "))
	assert.Equal(t, "", CollapseWhitespace(" \n\t "))
}

func TestCleanToValidUTF8(t *testing.T) {
	assert.Equal(t, "ok", CleanToValidUTF8("ok"))
	assert.Equal(t, "ab", CleanToValidUTF8("a\xffb"))
}

func TestShouldContinue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assert.True(t, ShouldContinue(ctx))
	cancel()
	assert.False(t, ShouldContinue(ctx))
}

func TestContainsString(t *testing.T) {
	assert.True(t, ContainsString([]string{"a", "b"}, "b"))
	assert.False(t, ContainsString([]string{"a", "b"}, "c"))
}
