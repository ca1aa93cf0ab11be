package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arnac-io/multisig/pkg/core"
)

func TestParse(t *testing.T) {
	alice := "0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	bob := "0x8eaf04151687736326c9fea17e25fc5287613693c912909cb226aa4794f26a48"
	tests := []struct {
		name    string
		env     map[string]string
		check   func(t *testing.T, c Config)
		wantErr bool
	}{
		{
			name: "defaults",
			check: func(t *testing.T, c Config) {
				require.Equal(t, "INFO", c.App.LogLevel)
				require.Equal(t, 9010, c.App.MetricsPort)
				require.Equal(t, uint(3), c.Coordinator.StaleRetryAttempts)
				require.Equal(t, 50*time.Millisecond, c.Coordinator.StaleRetryDelay)
				require.Equal(t, 1024, c.Coordinator.CallCacheSize)
				require.Equal(t, 5, c.Coordinator.ResyncConcurrency)
				require.Equal(t, 10*time.Minute, c.Storage.OrphanEventTTL)
				require.Empty(t, c.App.Accounts)
			},
		},
		{
			name: "overrides",
			env: map[string]string{
				"LOG_LEVEL":        "DEBUG",
				"ORPHAN_EVENT_TTL": "1h",
				"ACCOUNTS":         alice + ", " + bob,
			},
			check: func(t *testing.T, c Config) {
				require.Equal(t, "DEBUG", c.App.LogLevel)
				require.Equal(t, time.Hour, c.Storage.OrphanEventTTL)
				require.Equal(t, accountsList{core.MustParseAccountID(alice), core.MustParseAccountID(bob)}, c.App.Accounts)
			},
		},
		{
			name:    "bad account",
			env:     map[string]string{"ACCOUNTS": "0x01"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			c, err := Parse()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.Nil(t, err)
			tt.check(t, c)
		})
	}
}
