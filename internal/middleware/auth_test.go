package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ayush/docmind/backend/internal/auth"
)

type lookup map[string]string

func (l lookup) Get(_ context.Context, sid string) (string, error) {
	if sid == "broken" {
		return "", errors.New("redis down")
	}
	return l[sid], nil
}

func TestRequireAuth(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := RequireAuth(lookup{"good": "u-42"})(next)

	tests := []struct {
		name   string
		cookie string
		want   int
		user   string
	}{
		{"no cookie", "", http.StatusUnauthorized, ""},
		{"unknown session", "stale", http.StatusUnauthorized, ""},
		{"lookup error", "broken", http.StatusUnauthorized, ""},
		{"valid", "good", http.StatusNoContent, "u-42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.user, seen)
		})
	}
}
