package uapool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_DefaultsLanguage(t *testing.T) {
	p := New("")
	h := p.Headers()
	assert.Equal(t, "en-IN,en;q=0.9", h.Get("Accept-Language"))
}

func TestPick_ReturnsKnownAgent(t *testing.T) {
	p := New("en-US")
	known := make(map[string]bool, len(defaultAgents))
	for _, a := range defaultAgents {
		known[a] = true
	}
	for i := 0; i < 50; i++ {
		assert.True(t, known[p.Pick()])
	}
}

func TestHeaders_SetsExpectedFields(t *testing.T) {
	p := New("en-US")
	h := p.Headers()
	assert.NotEmpty(t, h.Get("User-Agent"))
	assert.Contains(t, h.Get("Accept-Encoding"), "gzip")
	assert.Equal(t, "en-US", h.Get("Accept-Language"))
}
