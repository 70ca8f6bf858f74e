package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

const (
	tokenField  = "protection_token"
	tokenHeader = "X-Protection-Token"
)

// maxTokenBodyBytes bounds how much of a JSON body is read while looking
// for an embedded token.
const maxTokenBodyBytes = 1 << 20

// RequireToken guards a route behind a valid access token. The token may
// arrive as a query parameter, form field, JSON body field, or dedicated
// header; invalid or absent tokens get a 403.
func (s *Server) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractToken(r)
		valid := s.tokens.Validate(r.Context(), raw)
		if !valid {
			writeError(w, http.StatusForbidden, "invalid protection token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractToken(r *http.Request) string {
	if tok := r.URL.Query().Get(tokenField); tok != "" {
		return tok
	}
	if tok := r.Header.Get(tokenHeader); tok != "" {
		return tok
	}
	if r.Method != http.MethodPost || r.Body == nil {
		return ""
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		// Restore the body so the wrapped handler can still read it.
		body, err := io.ReadAll(io.LimitReader(r.Body, maxTokenBodyBytes))
		if err != nil {
			return ""
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		var payload struct {
			Token string `json:"protection_token"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return ""
		}
		return payload.Token
	}

	if err := r.ParseForm(); err != nil {
		return ""
	}
	return r.PostFormValue(tokenField)
}
