package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundRobin(t *testing.T) {
	s := NewProxySupplier([]string{"http://a:1", "not a url", "http://b:2"})

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, "http://a:1", s.Get())
	assert.Equal(t, "http://b:2", s.Get())
	assert.Equal(t, "http://a:1", s.Get())
}

func TestEmptySupplier(t *testing.T) {
	s := NewProxySupplier(nil)

	assert.Zero(t, s.Len())
	assert.Equal(t, "", s.Get())
}
