package guard

import (
	"crypto/sha256"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/mr-tron/base58"
)

// Storage keys shared by the browser app, the login API cookies and the CLI.
const (
	TokenKey = "token"
	UserKey  = "user"
)

// storedUser is the subset of the stored user record the guard cares about.
type storedUser struct {
	Roles json.RawMessage `json:"roles"`
}

// ParseSession builds a Session from the raw values kept under TokenKey and
// UserKey. It never fails: a missing, unparsable or oddly shaped user record
// yields an empty role set.
func ParseSession(token, rawUser string) Session {
	return Session{
		Token: token,
		Roles: parseRoles(rawUser),
	}
}

func parseRoles(rawUser string) []string {
	if rawUser == "" {
		return nil
	}

	var user storedUser
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return nil
	}

	var items []any
	if err := json.Unmarshal(user.Roles, &items); err != nil {
		return nil
	}

	var roles []string
	for _, item := range items {
		if role, ok := item.(string); ok {
			roles = append(roles, role)
		}
	}
	return roles
}

// EncodeUserCookie escapes a serialized user record for use as a cookie value.
func EncodeUserCookie(rawUser []byte) string {
	return url.QueryEscape(string(rawUser))
}

// SessionFromRequest reads the token and user cookies from r.
// An undecodable user cookie is treated like malformed JSON.
func SessionFromRequest(r *http.Request) Session {
	var token, rawUser string

	if c, err := r.Cookie(TokenKey); err == nil {
		token = c.Value
	}

	if c, err := r.Cookie(UserKey); err == nil {
		if v, err := url.QueryUnescape(c.Value); err == nil {
			rawUser = v
		}
	}

	return ParseSession(token, rawUser)
}

// Fingerprint returns a short, non-reversible label for a token, safe to log.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return base58.Encode(sum[:8])
}
