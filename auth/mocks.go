package auth

import (
	"net/http"
	"net/http/cookiejar"
	"time"
)

// MockSession builds a session against the given base url without performing
// the digest handshake; tests for downstream components use it directly.
func MockSession(baseUrl string) *Session {
	jar, _ := cookiejar.New(nil)

	return &Session{
		client:        &http.Client{Jar: jar},
		baseUrl:       baseUrl,
		establishedAt: time.Now(),
	}
}
