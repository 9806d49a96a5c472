package audit

import "strings"

// RedactedValue replaces any value whose key matches the deny list. The
// original value is dropped entirely, whatever its type.
const RedactedValue = "[REDACTED]"

// sensitiveKeys holds deny-list entries in normalized form: lowercased with
// separators removed, so password, PASSWORD, api_key, api-key and "API Key"
// all land on the same entry.
var sensitiveKeys = map[string]struct{}{
	"password":         {},
	"passwd":           {},
	"apikey":           {},
	"secret":           {},
	"clientsecret":     {},
	"signingsecret":    {},
	"token":            {},
	"accesstoken":      {},
	"refreshtoken":     {},
	"authorization":    {},
	"cardnumber":       {},
	"creditcard":       {},
	"creditcardnumber": {},
	"ccnumber":         {},
	"cvv":              {},
	"cvc":              {},
	"pin":              {},
	"ssn":              {},
	"privatekey":       {},
}

// Redact walks a decoded JSON tree and replaces every value keyed by a
// sensitive name. Matching is by key name only, never by inspecting values,
// and applies at every nesting depth. The input is not modified.
func Redact(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			if isSensitiveKey(key) {
				out[key] = RedactedValue
				continue
			}
			out[key] = Redact(child)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = Redact(child)
		}
		return out
	default:
		return value
	}
}

func isSensitiveKey(key string) bool {
	normalized := strings.ToLower(key)
	normalized = strings.NewReplacer("_", "", "-", "", " ", "").Replace(normalized)
	_, ok := sensitiveKeys[normalized]
	return ok
}
