package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDomainPolicy_CanonicalizesHost(t *testing.T) {
	p, err := NewDomainPolicy("  Shop.Example.COM:443  ", "https://cdn.example.com", "", "", "active")
	require.NoError(t, err)
	assert.Equal(t, "shop.example.com", p.Host)
	assert.Equal(t, "shop.example.com", p.CacheKey())
	assert.Equal(t, "https://cdn.example.com", p.WhiteOrigin)
	assert.Empty(t, p.BlackOrigin)
	assert.Equal(t, "active", p.Status)
}

func TestNewDomainPolicy_EmptyHostFails(t *testing.T) {
	_, err := NewDomainPolicy("", "https://cdn.example.com", "", "", "")
	assert.Error(t, err)

	_, err = NewDomainPolicy("   ", "", "", "", "")
	assert.Error(t, err)
}

func TestNewDomainPolicy_CompilesBlockPattern(t *testing.T) {
	p, err := NewDomainPolicy("example.com", "", "", "badagent|eviltool", "")
	require.NoError(t, err)
	require.NotNil(t, p.BlockPattern)

	// pattern must be case-insensitive over the full agent string
	assert.True(t, p.BlockPattern.MatchString("Mozilla/5.0 BadAgent/1.0"))
	assert.True(t, p.BlockPattern.MatchString("EVILTOOL"))
	assert.False(t, p.BlockPattern.MatchString("Mozilla/5.0 (Windows NT 10.0)"))
}

func TestNewDomainPolicy_InvalidPatternDropped(t *testing.T) {
	p, err := NewDomainPolicy("example.com", "", "", "([unclosed", "")
	require.NoError(t, err)
	assert.Nil(t, p.BlockPattern)
	assert.True(t, PatternDropped("([unclosed", p))
	assert.False(t, PatternDropped("", p))
}

func TestNewDomainPolicy_NoPattern(t *testing.T) {
	p, err := NewDomainPolicy("example.com", "", "", "", "")
	require.NoError(t, err)
	assert.Nil(t, p.BlockPattern)
	assert.False(t, PatternDropped("", p))
}
