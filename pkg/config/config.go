package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Required environment variables. Missing any of them is fatal at startup.
const (
	EnvOpenAIKey          = "OPENAI_API_KEY"
	EnvWalletAPIKeyName   = "WALLET_API_KEY_NAME"
	EnvWalletAPIKeySecret = "WALLET_API_KEY_SECRET"
)

var requiredVars = []string{EnvOpenAIKey, EnvWalletAPIKeyName, EnvWalletAPIKeySecret}

// Config holds everything read from the environment at startup. Nothing is
// mutated afterwards; changing the prompt or contract requires a restart.
type Config struct {
	OpenAIKey          string
	WalletAPIKeyName   string
	WalletAPIKeySecret string

	NetworkID      string
	WalletDataFile string
	CampaignFile   string

	S3Bucket string
	S3Region string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RuntimeWSURL string
}

// MissingError lists exactly the required variables that were absent.
type MissingError struct {
	Vars []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Vars, ", "))
}

// Load builds the configuration from the given environment lookup. It
// returns a MissingError naming every absent required variable, none
// omitted, none fabricated.
func Load(getenv func(string) string) (*Config, error) {
	var missing []string
	for _, name := range requiredVars {
		if strings.TrimSpace(getenv(name)) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingError{Vars: missing}
	}

	cfg := &Config{
		OpenAIKey:          getenv(EnvOpenAIKey),
		WalletAPIKeyName:   getenv(EnvWalletAPIKeyName),
		WalletAPIKeySecret: getenv(EnvWalletAPIKeySecret),

		NetworkID:      getenv("NETWORK_ID"),
		WalletDataFile: getenv("WALLET_DATA_FILE"),
		CampaignFile:   getenv("CAMPAIGN_FILE"),

		S3Bucket: getenv("S3_BUCKET"),
		S3Region: getenv("S3_REGION"),

		RedisAddr:     getenv("REDIS_ADDR"),
		RedisPassword: getenv("REDIS_PASSWORD"),

		RuntimeWSURL: getenv("RUNTIME_WS_URL"),
	}

	if db := getenv("REDIS_DB"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", db, err)
		}
		cfg.RedisDB = n
	}

	if cfg.WalletDataFile == "" {
		cfg.WalletDataFile = "wallet_data.json"
	}
	if cfg.S3Bucket == "" {
		cfg.S3Bucket = "adforge-creatives"
	}
	if cfg.S3Region == "" {
		cfg.S3Region = "us-east-1"
	}

	return cfg, nil
}
