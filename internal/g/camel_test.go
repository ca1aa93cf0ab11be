package g

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var cases = []struct {
	name, input, output string
}{
	{"empty", "", ""},
	{"empty array", "[]", "[]"},
	{"empty object", "{}", "{}"},
	{"empty string", `""`, `""`},
	{"string", `"a"`, `"a"`},
	{"simple", `{"A":["B"],"C":1,"D":"e"}`, `{"a":["B"],"c":1,"d":"e"}`},
	{"nested", `{"A":["b","c"],"C":0.25,"D":null,"F":{"G":"h","a":[{"O":"o"},{"D":1},["a",{"C":"d"}]]}}`, `{"a":["b","c"],"c":0.25,"d":null,"f":{"g":"h","a":[{"o":"o"},{"d":1},["a",{"c":"d"}]]}}`},
	{"transaction",
		`{"AccountID": "0xd435", "CallHash":"0x0101","BlockCreated":18446744073709551615,"Deposit":"20088000000","call_data":null,"Signatories":[{"AccountID":"0x8eaf","Name":"Bob"}],"Transaction":{"Args":{"TransferFields":{"Dest":"1abc"}}}}`,
		`{"account_id":"0xd435","call_hash":"0x0101","block_created":18446744073709551615,"deposit":"20088000000","call_data":null,"signatories":[{"account_id":"0x8eaf","name":"Bob"}],"transaction":{"args":{"transfer_fields":{"dest":"1abc"}}}}`,
	},
	{"invalid", `{"A":`, `{"A":`},
}

func TestChangeJsonKeys(t *testing.T) {
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ChangeJsonKeys([]byte(c.input), CamelToSnake)
			require.Equal(t, c.output, string(got))
		})
	}
}

func TestCamelToSnake(t *testing.T) {
	tests := map[string]string{
		"A":             "a",
		"SumType":       "sum_type",
		"AccountID":     "account_id",
		"TxChainID":     "tx_chain_id",
		"HTTPServer":    "http_server",
		"Block2Index":   "block2_index",
		"already_snake": "already_snake",
		"IsFinal_Flag":  "is_final_flag",
	}
	for input, want := range tests {
		require.Equal(t, want, CamelToSnake(input), input)
	}
}

func BenchmarkChangeJsonKeys(b *testing.B) {
	for _, c := range cases {
		b.Run(c.name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				ChangeJsonKeys([]byte(c.input), CamelToSnake)
			}
		})
	}
}
