package config

import (
	"net/url"
	"strings"
)

// maskers hold the keys whose values are hidden from list/get output,
// each with the rule that hides it.
var maskers = map[string]func(string) string{
	"telegram.token": maskToken,
	"delivery.token": maskToken,
	"delivery.url":   maskURL,
}

// urlSecretParams are query parameters treated as credentials in delivery.url.
var urlSecretParams = []string{"token", "access_token", "api_key", "key", "secret"}

// MaskValue returns v as it should be displayed for key.
func MaskValue(key string, v any) any {
	mask, ok := maskers[key]
	if !ok {
		return v
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return v
	}
	return mask(s)
}

// MaskSecrets returns a copy of the flat map with secret values masked.
func MaskSecrets(flat map[string]any) map[string]any {
	out := make(map[string]any, len(flat))
	for k, v := range flat {
		out[k] = MaskValue(k, v)
	}
	return out
}

// maskToken keeps the last four runes: "***abcd".
func maskToken(s string) string {
	r := []rune(s)
	if len(r) <= 4 {
		return "***" + s
	}
	return "***" + string(r[len(r)-4:])
}

// maskURL hides the password and credential-like query parameters of a
// delivery endpoint, leaving the host and path readable.
func maskURL(s string) string {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return maskToken(s)
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
	}
	if u.RawQuery != "" {
		q := u.Query()
		for _, p := range urlSecretParams {
			if q.Has(p) {
				q.Set(p, "***")
			}
		}
		u.RawQuery = q.Encode()
	}
	// Encoding would escape the mask characters.
	return strings.ReplaceAll(u.String(), "%2A%2A%2A", "***")
}

// Flatten converts a nested map into a flat map with dot-separated keys.
// For example, {"http": {"listen": ":8787"}} becomes {"http.listen": ":8787"}.
// Empty nested maps produce no keys.
func Flatten(m map[string]any) map[string]any {
	out := make(map[string]any)
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			if prefix != "" {
				k = prefix + "." + k
			}
			if child, ok := v.(map[string]any); ok {
				walk(k, child)
				continue
			}
			out[k] = v
		}
	}
	walk("", m)
	return out
}

// Unflatten converts a flat map with dot-separated keys back into a nested map.
func Unflatten(flat map[string]any) map[string]any {
	out := make(map[string]any)
	for key, v := range flat {
		section := out
		for {
			head, rest, nested := strings.Cut(key, ".")
			if !nested {
				section[head] = v
				break
			}
			next, ok := section[head].(map[string]any)
			if !ok {
				next = make(map[string]any)
				section[head] = next
			}
			section, key = next, rest
		}
	}
	return out
}
