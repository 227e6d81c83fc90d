package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const redacted = "[REDACTED]"

// scrubber drops credentials and replaces member identifiers with a salted digest, so
// log lines for one member still correlate without naming them.
type scrubber struct {
	salt string
}

func (s *scrubber) pairs(kv []any) []any {
	out := make([]any, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		out = append(out, key, s.value(strings.ToLower(key), kv[i+1]))
	}
	if len(kv)%2 == 1 {
		out = append(out, kv[len(kv)-1])
	}
	return out
}

func (s *scrubber) value(key string, v any) any {
	switch {
	case secretKey(key):
		return redacted
	case memberKey(key):
		return s.digest(v)
	}
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = s.value(strings.ToLower(k), inner)
		}
		return out
	case string:
		if bearerLike(t) {
			return redacted
		}
	}
	return v
}

func secretKey(key string) bool {
	if key == "pin" || strings.HasSuffix(key, "_pin") || strings.HasPrefix(key, "pin_") {
		return true
	}
	for _, part := range []string{"token", "authorization", "secret", "password", "credential", "cookie"} {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

func memberKey(key string) bool {
	return key == "member_id" || key == "caller_id" || strings.HasSuffix(key, "_member_id")
}

func (s *scrubber) digest(v any) string {
	raw := strings.TrimSpace(fmt.Sprint(v))
	if raw == "" || raw == "<nil>" {
		return ""
	}
	sum := sha256.Sum256([]byte(s.salt + raw))
	return "m:" + hex.EncodeToString(sum[:6])
}

// bearerLike spots JWTs passed under an innocent key.
func bearerLike(s string) bool {
	if strings.HasPrefix(s, "Bearer ") {
		return true
	}
	parts := strings.Split(s, ".")
	return len(parts) == 3 && len(parts[0]) > 10 && len(parts[1]) > 10
}
