package config

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	ChainName string `env:"CHAIN_NAME,default=polls"`

	RPCURL              string `env:"RPC_URL,default=http://localhost:8545"`
	BundlerRPCURL       string `env:"BUNDLER_RPC_URL,required"`
	BundlerOriginHeader string `env:"BUNDLER_ORIGIN_HEADER"`

	RegistryAddress   string `env:"REGISTRY_ADDRESS,required"`
	EntryPointAddress string `env:"ENTRYPOINT_ADDRESS,required"`
	AccountAddress    string `env:"ACCOUNT_ADDRESS"`
	SessionPrivateKey string `env:"SESSION_PRIVATE_KEY"`

	APIKey     string `env:"API_KEY"`
	SentryURL  string `env:"SENTRY_URL"`
	DiscordURL string `env:"DISCORD_URL"`

	DBUser       string `env:"DB_USER,default=postgres"`
	DBPassword   string `env:"DB_PASSWORD"`
	DBName       string `env:"DB_NAME,default=pollnode"`
	DBHost       string `env:"DB_HOST,default=localhost"`
	DBReaderHost string `env:"DB_READER_HOST,default=localhost"`
	DBDisabled   bool   `env:"DB_DISABLED,default=false"`

	LeaderboardTimezone string `env:"LEADERBOARD_TZ,default=UTC"`
}

func New(ctx context.Context, envpath string) (*Config, error) {
	if envpath != "" {
		log.Default().Println("loading env from file: ", envpath)
		err := godotenv.Load(envpath)
		if err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	err := envconfig.Process(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
