package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arnac-io/multisig/pkg/addressbook"
	"github.com/arnac-io/multisig/pkg/chains"
	"github.com/arnac-io/multisig/pkg/config"
	"github.com/arnac-io/multisig/pkg/core"
	"github.com/arnac-io/multisig/pkg/multisig"
)

var (
	alice   = core.MustParseAccountID("0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d")
	bob     = core.MustParseAccountID("0x8eaf04151687736326c9fea17e25fc5287613693c912909cb226aa4794f26a48")
	charlie = core.MustParseAccountID("0x90b5ab205c6974c9ea841be688864633dc9ca8a357843eeacf2314649965fe22")
)

func replay(t *testing.T, cfg config.Config, asJSON bool) string {
	f, err := LoadFixture("testdata/rounds.yaml")
	require.Nil(t, err)
	book := addressbook.NewAddressBook(f.Contacts, f.Wallets)
	r := newReplayer(zap.NewNop(), cfg, chains.Default(), book)
	var out bytes.Buffer
	require.Nil(t, r.Run(context.Background(), f, &out, asJSON))
	return out.String()
}

func defaultConfig(t *testing.T) config.Config {
	cfg, err := config.Parse()
	require.Nil(t, err)
	return cfg
}

func TestReplay_text(t *testing.T) {
	out := replay(t, defaultConfig(t), false)
	rounds := strings.Split(out, "0x91b171bb158e2d3848fa23a9f1c25182fb8e20313b2c1eb49219da7a70ce90c3 ")
	require.Len(t, rounds, 4)

	executed := rounds[1]
	require.Contains(t, executed, "@100-1")
	require.Contains(t, executed, "status EXECUTED, approvals 2/2")
	require.Contains(t, executed, "Transfer 1.5 DOT to ")
	require.Contains(t, executed, `"rent"`)
	require.Contains(t, executed, "[x] Alice (depositor)")
	require.Contains(t, executed, "[x] Bob")
	require.Contains(t, executed, "  2024-05-01\n    10:00:00 Alice SIGNED initiating")
	require.Contains(t, executed, "  2024-05-02\n    09:00:00 Bob SIGNED")

	cancelled := rounds[2]
	require.Contains(t, cancelled, "@200-3")
	require.Contains(t, cancelled, "status CANCELLED, approvals 1/3")
	require.Contains(t, cancelled, "call data unknown")
	require.Contains(t, cancelled, "08:30:00 Alice CANCELLED")

	established := rounds[3]
	require.Contains(t, established, "@300-4")
	// the depositor approved when initiating the round on chain
	require.Contains(t, established, "status ESTABLISHED, approvals 2/3")
	require.Contains(t, established, "[x] Alice (depositor)")
	require.NotContains(t, established, "initiating")
}

func TestReplay_json(t *testing.T) {
	out := replay(t, defaultConfig(t), true)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], `"status":"EXECUTED"`)
	require.Contains(t, lines[0], `"call_hash":"0x5dc44d4d5830245a19a0c75d5a06959b5ed0f8bffdc3b7bfacc1c5dcdb493a78"`)
	require.Contains(t, lines[0], `"label":"Transfer"`)
	require.Contains(t, lines[0], `"account_id":"`+alice.Hex()+`"`)
	require.NotContains(t, lines[0], `"AccountID"`)
	require.Contains(t, lines[1], `"status":"CANCELLED"`)
	require.Contains(t, lines[1], `"summary":null`)
	require.Contains(t, lines[2], `"status":"ESTABLISHED"`)
}

func TestReplay_accountFilter(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.App.Accounts = []core.AccountID{multisig.DeriveAccountID([]core.AccountID{alice, bob, charlie}, 3)}
	out := replay(t, cfg, false)
	require.NotContains(t, out, "@100-1")
	require.Contains(t, out, "@200-3")
	require.Contains(t, out, "@300-4")
}

func TestParseFixture_errors(t *testing.T) {
	const signatories = `
    signatories:
      - account_id: "0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
      - account_id: "0x8eaf04151687736326c9fea17e25fc5287613693c912909cb226aa4794f26a48"
`
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing chain",
			content: "transactions:\n  - threshold: 2\n    call_hash: \"0x5dc44d4d5830245a19a0c75d5a06959b5ed0f8bffdc3b7bfacc1c5dcdb493a78\"" + signatories,
			wantErr: "chain_id is required",
		},
		{
			name:    "threshold above signatories",
			content: "transactions:\n  - chain_id: \"0x01\"\n    threshold: 3\n    call_hash: \"0x5dc44d4d5830245a19a0c75d5a06959b5ed0f8bffdc3b7bfacc1c5dcdb493a78\"" + signatories,
			wantErr: "threshold 3 of 2 signatories",
		},
		{
			name:    "call hash mismatch",
			content: "transactions:\n  - chain_id: \"0x01\"\n    threshold: 2\n    call_data: \"0x0500\"\n    call_hash: \"0x5dc44d4d5830245a19a0c75d5a06959b5ed0f8bffdc3b7bfacc1c5dcdb493a78\"" + signatories,
			wantErr: core.ErrCallHashMismatch.Error(),
		},
		{
			name:    "no call",
			content: "transactions:\n  - chain_id: \"0x01\"\n    threshold: 2" + signatories,
			wantErr: "call_hash or call_data is required",
		},
		{
			name:    "unknown timezone",
			content: "timezone: Mars/Olympus",
			wantErr: "timezone",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFixture([]byte(tt.content))
			require.NotNil(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
