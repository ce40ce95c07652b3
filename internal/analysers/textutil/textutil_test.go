package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollapseSpace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseSpace("  a \n\t b   c "))
	assert.Equal(t, "", CollapseSpace(" \n "))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Total Knee Replacement", Title("total knee replacement"))
}

func TestWindow(t *testing.T) {
	text := "0123456789"
	assert.Equal(t, "234567", Window(text, 4, 6, 2, 2))
	assert.Equal(t, "012", Window(text, 1, 2, 5, 1))
	assert.Equal(t, "789", Window(text, 8, 9, 1, 10))
}

func TestWindow_RuneBoundaries(t *testing.T) {
	text := "éé call doctor éé"
	got := Window(text, 5, 16, 4, 2)
	assert.True(t, len(got) > 0)
	for _, r := range got {
		assert.NotEqual(t, '�', r)
	}
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Dedupe([]string{"a", "b", "a", "c", "b"}))
	assert.Empty(t, Dedupe(nil))
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "abc", Prefix("abcdef", 3))
	assert.Equal(t, "ab", Prefix("ab", 3))
	assert.Equal(t, "hé", Prefix("héllo", 2))
}
