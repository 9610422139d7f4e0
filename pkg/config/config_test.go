package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *PollServerConfig {
	return &PollServerConfig{
		PollID:    "poll-1",
		Question:  "Approve proposal 7?",
		Port:      8000,
		StoreType: StoreTypeMemory,
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*PollServerConfig)
		wantErr string
	}{
		{"Missing question", func(c *PollServerConfig) { c.Question = "" }, "question"},
		{"Port too low", func(c *PollServerConfig) { c.Port = 0 }, "port"},
		{"Port too high", func(c *PollServerConfig) { c.Port = 70000 }, "port"},
		{"Unknown store type", func(c *PollServerConfig) { c.StoreType = "postgres" }, "storeType"},
		{"Badger without data path", func(c *PollServerConfig) { c.StoreType = StoreTypeBadger }, "dataPath"},
		{"Redis without address", func(c *PollServerConfig) { c.StoreType = StoreTypeRedis }, "redisAddress"},
		{"Redis DB out of range", func(c *PollServerConfig) {
			c.StoreType = StoreTypeRedis
			c.RedisAddress = "localhost:6379"
			c.RedisDB = 16
		}, "redisDB"},
		{"Blank choice", func(c *PollServerConfig) { c.Choices = []string{"yes", "  "} }, "choices"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestParseChoices(t *testing.T) {
	assert.Nil(t, ParseChoices(""))
	assert.Equal(t, []string{"yes", "no"}, ParseChoices("yes,no"))
	assert.Equal(t, []string{"yes", "no", "abstain"}, ParseChoices(" yes , no ,abstain, "))
}
