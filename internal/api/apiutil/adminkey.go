package apiutil

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AdminKeyHeader carries the per-tenant admin key on panel and
// cancellation requests.
const AdminKeyHeader = "X-Admin-Key"

// AdminKeyFromRequest reads the admin key from the header or, as a
// fallback for browser links, the "key" query parameter.
func AdminKeyFromRequest(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(AdminKeyHeader)); key != "" {
		return key
	}
	return strings.TrimSpace(r.URL.Query().Get("key"))
}

// HashAdminKey wraps bcrypt.GenerateFromPassword for admin key storage.
func HashAdminKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyAdminKey wraps bcrypt.CompareHashAndPassword. An empty stored
// hash never matches; it means admin access is not configured.
func VerifyAdminKey(hash, key string) bool {
	if hash == "" || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
