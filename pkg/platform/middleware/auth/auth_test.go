package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireHookSecret(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("empty secret disables the check", func(t *testing.T) {
		h := RequireHookSecret("", logger)(ok)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/hooks/login", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("matching bearer passes", func(t *testing.T) {
		h := RequireHookSecret("s3cret", logger)(ok)
		r := httptest.NewRequest(http.MethodPost, "/hooks/login", nil)
		r.Header.Set("Authorization", "Bearer s3cret")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("missing or wrong bearer is unauthorized", func(t *testing.T) {
		h := RequireHookSecret("s3cret", logger)(ok)
		for _, header := range []string{"", "Bearer nope", "s3cret"} {
			r := httptest.NewRequest(http.MethodPost, "/hooks/login", nil)
			if header != "" {
				r.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, http.StatusUnauthorized, w.Code, header)
		}
	})
}
