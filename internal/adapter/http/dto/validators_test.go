package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeStruct(t *testing.T) {
	ref := "  <img src=x>  "
	type sample struct {
		Name string
		Ref  *string
		Keep int
	}
	s := sample{Name: "  <b>venue</b> ", Ref: &ref, Keep: 7}

	SanitizeStruct(&s)

	assert.Equal(t, "&lt;b&gt;venue&lt;/b&gt;", s.Name)
	assert.Equal(t, "&lt;img src=x&gt;", *s.Ref)
	assert.Equal(t, 7, s.Keep)
}

func TestSanitizeStruct_NonPointerIgnored(t *testing.T) {
	type sample struct{ Name string }
	s := sample{Name: " keep "}

	SanitizeStruct(s) // no-op on a value

	assert.Equal(t, " keep ", s.Name)
}

func TestSafeStringRe(t *testing.T) {
	valid := []string{"venue-1", "gate_7", "item.9", "ABC123"}
	invalid := []string{"", "venue 1", "a;b", "x<script>", "a/b"}

	for _, s := range valid {
		assert.True(t, safeStringRe.MatchString(s), s)
	}
	for _, s := range invalid {
		assert.False(t, safeStringRe.MatchString(s), s)
	}
}
