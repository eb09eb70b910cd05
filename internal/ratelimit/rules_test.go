package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/studyhelper-bot/pkg/config"
)

func testRules() *Rules {
	return NewRules(config.RateLimitConfig{
		Enabled: true,
		PerUser: config.RateLimitRule{Limit: 30, Window: "1m"},
		Commands: config.CommandRateLimits{
			CreateSubject: config.RateLimitRule{Limit: 5, Window: "1m"},
			Grade:         config.RateLimitRule{Limit: 60, Window: "30s"},
			Support:       config.RateLimitRule{Limit: 10, Window: "bogus"},
		},
		Whitelist: []int64{42},
	})
}

func TestRules_RouteLimits(t *testing.T) {
	rules := testRules()

	rule, ok, err := rules.Route(RouteCreateSubject)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Rule{Limit: 5, Window: time.Minute}, rule)

	rule, ok, err = rules.Route(RouteGrade)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Rule{Limit: 60, Window: 30 * time.Second}, rule)

	_, _, err = rules.Route(RouteSupport)
	assert.Error(t, err)

	_, ok, err = rules.Route("/help")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRules_UnsetRouteHasNoRule(t *testing.T) {
	rules := NewRules(config.RateLimitConfig{Enabled: true})

	_, ok, err := rules.Route(RouteGrade)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRules_Whitelist(t *testing.T) {
	rules := testRules()

	assert.True(t, rules.Enabled())
	assert.True(t, rules.IsWhitelisted(42))
	assert.False(t, rules.IsWhitelisted(43))

	var disabled *Rules
	assert.False(t, disabled.Enabled())
}

func TestRules_GlobalAndPerUser(t *testing.T) {
	rules := testRules()

	_, ok, err := rules.Global()
	require.NoError(t, err)
	assert.False(t, ok)

	rule, err := rules.PerUser()
	require.NoError(t, err)
	assert.Equal(t, Rule{Limit: 30, Window: time.Minute}, rule)

	_, err = NewRules(config.RateLimitConfig{}).PerUser()
	assert.Error(t, err)

	_, err = NewRules(config.RateLimitConfig{PerUser: config.RateLimitRule{Limit: 1, Window: "-1s"}}).PerUser()
	assert.Error(t, err)
}
