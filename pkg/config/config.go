package config

import (
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"

	"github.com/arnac-io/multisig/pkg/core"
)

type Config struct {
	App struct {
		LogLevel    string `env:"LOG_LEVEL" envDefault:"INFO"`
		MetricsPort int    `env:"METRICS_PORT" envDefault:"9010"`
		SentryDSN   string `env:"SENTRY_DSN"`
		// Accounts limits processing to these multisig accounts. Empty means all.
		Accounts accountsList `env:"ACCOUNTS"`
	}
	Chains struct {
		File            string `env:"CHAINS_FILE"`
		AddressBookFile string `env:"ADDRESS_BOOK_FILE"`
	}
	Coordinator struct {
		StaleRetryAttempts uint          `env:"STALE_RETRY_ATTEMPTS" envDefault:"3"`
		StaleRetryDelay    time.Duration `env:"STALE_RETRY_DELAY" envDefault:"50ms"`
		CallCacheSize      int           `env:"CALL_CACHE_SIZE" envDefault:"1024"`
		ResyncConcurrency  int           `env:"RESYNC_CONCURRENCY" envDefault:"5"`
	}
	Storage struct {
		OrphanEventTTL time.Duration `env:"ORPHAN_EVENT_TTL" envDefault:"10m"`
	}
}

type accountsList []core.AccountID

func Parse() (Config, error) {
	var c Config
	err := env.ParseWithFuncs(&c, map[reflect.Type]env.ParserFunc{
		reflect.TypeOf(accountsList{}): func(v string) (interface{}, error) {
			var accs accountsList
			for _, s := range strings.Split(v, ",") {
				a, err := core.ParseAccountID(strings.TrimSpace(s))
				if err != nil {
					return nil, err
				}
				accs = append(accs, a)
			}
			return accs, nil
		}})
	return c, err
}

func Load() Config {
	c, err := Parse()
	if err != nil {
		log.Panicf("[‼️  Config parsing failed] %+v\n", err)
	}
	return c
}
