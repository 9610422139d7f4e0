package config

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for Poll Server configuration
const (
	EnvPollID        = "POLL_ID"
	EnvPollQuestion  = "POLL_QUESTION"
	EnvPollChoices   = "POLL_CHOICES"
	EnvPollPort      = "POLL_PORT"
	EnvPollStoreType = "POLL_STORE_TYPE"
	EnvPollDataPath  = "POLL_DATA_PATH"
	EnvPollRedisAddr = "POLL_REDIS_ADDRESS"
	EnvPollRedisPass = "POLL_REDIS_PASSWORD"
	EnvPollRedisDB   = "POLL_REDIS_DB"
	EnvPollVerbose   = "POLL_VERBOSE"
)

// StoreType selects the commitment store backend
type StoreType string

func (s StoreType) String() string {
	return string(s)
}

const (
	StoreTypeMemory StoreType = "memory" // testing only
	StoreTypeBadger StoreType = "badger"
	StoreTypeRedis  StoreType = "redis"
)

// SupportedStoreTypes lists the valid POLL_STORE_TYPE values
func SupportedStoreTypes() []StoreType {
	return []StoreType{StoreTypeMemory, StoreTypeBadger, StoreTypeRedis}
}

// SupportedStoreTypesString returns store types for CLI help
func SupportedStoreTypesString() string {
	return fmt.Sprintf("%s (testing only), %s, %s", StoreTypeMemory, StoreTypeBadger, StoreTypeRedis)
}

// PollServerConfig represents the complete configuration for a poll server
type PollServerConfig struct {
	// Poll identity
	PollID   string `json:"poll_id"`
	Question string `json:"question"`

	// Choices is the optional closed choice set, comma separated in
	// POLL_CHOICES. Empty accepts any choice string.
	Choices []string `json:"choices,omitempty"`

	// Server settings
	Port int `json:"port"`

	// Storage settings
	StoreType     StoreType `json:"store_type"`
	DataPath      string    `json:"data_path,omitempty"`      // badger
	RedisAddress  string    `json:"redis_address,omitempty"`  // redis
	RedisPassword string    `json:"redis_password,omitempty"` // redis
	RedisDB       int       `json:"redis_db,omitempty"`       // redis

	// Operational settings
	Verbose bool `json:"verbose"`
}

// Validate validates the poll server configuration
func (c *PollServerConfig) Validate() error {
	var allErrors field.ErrorList

	if c.Question == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("question"), "question is required"))
	}

	if c.Port < 1 || c.Port > 65535 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("port"), c.Port, "port must be between 1-65535"))
	}

	switch c.StoreType {
	case StoreTypeMemory:
		// No further settings needed
	case StoreTypeBadger:
		if c.DataPath == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("dataPath"),
				fmt.Sprintf("data path is required for the %s store", StoreTypeBadger)))
		}
	case StoreTypeRedis:
		if c.RedisAddress == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("redisAddress"),
				fmt.Sprintf("redis address is required for the %s store", StoreTypeRedis)))
		}
		if c.RedisDB < 0 || c.RedisDB > 15 {
			allErrors = append(allErrors, field.Invalid(field.NewPath("redisDB"), c.RedisDB, "redis DB must be between 0-15"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(field.NewPath("storeType"), c.StoreType, []string{
			string(StoreTypeMemory), string(StoreTypeBadger), string(StoreTypeRedis),
		}))
	}

	for i, choice := range c.Choices {
		if strings.TrimSpace(choice) == "" {
			allErrors = append(allErrors, field.Invalid(field.NewPath("choices").Index(i), choice, "choice cannot be blank"))
		}
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// ParseChoices splits a comma separated choice list from a flag or
// POLL_CHOICES, dropping surrounding whitespace and empty entries.
func ParseChoices(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	choices := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			choices = append(choices, trimmed)
		}
	}
	return choices
}
