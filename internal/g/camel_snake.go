package g

import (
	"strings"
	"unicode"

	"github.com/go-faster/jx"
)

// CamelToSnake converts Go-style names to snake case, keeping acronyms
// together: "AccountID" becomes "account_id", "HTTPServer" "http_server".
func CamelToSnake(s string) string {
	runes := []rune(s)
	b := new(strings.Builder)
	b.Grow(len(s) + 5)
	for i, c := range runes {
		if !unicode.IsUpper(c) {
			b.WriteRune(c)
			continue
		}
		if i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prev != '_' && (unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower)) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(c))
	}
	return b.String()
}

// ChangeJsonKeys rewrites the keys of every object in input with f and
// returns compact JSON. Keys without upper case letters are kept. Invalid
// JSON is returned unchanged.
func ChangeJsonKeys(input []byte, f func(string) string) []byte {
	d := jx.DecodeBytes(input)
	if d.Next() == jx.Invalid {
		return input
	}
	var e jx.Encoder
	if err := rewrite(d, &e, f); err != nil {
		return input
	}
	return e.Bytes()
}

func rewrite(d *jx.Decoder, e *jx.Encoder, f func(string) string) error {
	switch d.Next() {
	case jx.Object:
		e.ObjStart()
		err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			name := string(key)
			if strings.IndexFunc(name, unicode.IsUpper) >= 0 {
				name = f(name)
			}
			e.FieldStart(name)
			return rewrite(d, e, f)
		})
		if err != nil {
			return err
		}
		e.ObjEnd()
	case jx.Array:
		e.ArrStart()
		err := d.Arr(func(d *jx.Decoder) error {
			return rewrite(d, e, f)
		})
		if err != nil {
			return err
		}
		e.ArrEnd()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return err
		}
		e.Str(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return err
		}
		e.Num(n)
	case jx.Bool:
		v, err := d.Bool()
		if err != nil {
			return err
		}
		e.Bool(v)
	case jx.Null:
		if err := d.Null(); err != nil {
			return err
		}
		e.Null()
	default:
		return d.Skip()
	}
	return nil
}
