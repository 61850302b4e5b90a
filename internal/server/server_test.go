package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytpod/internal/models"
	"github.com/desertthunder/ytpod/internal/services"
)

func exchangeOK(ctx context.Context, code string) (*services.AuthResponse, error) {
	return &services.AuthResponse{Token: "tok-" + code, Record: models.User{Email: "a@b.c"}}, nil
}

func TestOAuthHandler(t *testing.T) {
	t.Run("Exchanges Code", func(t *testing.T) {
		h := NewOAuthHandler("s1", exchangeOK)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=abc", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Signed in as a@b.c") {
			t.Errorf("expected signed in page, got %q", rec.Body.String())
		}
		res := <-h.Result()
		if res.Error() != nil || res.Auth == nil || res.Auth.Token != "tok-abc" {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("Rejects Bad State", func(t *testing.T) {
		h := NewOAuthHandler("s1", func(ctx context.Context, code string) (*services.AuthResponse, error) {
			t.Error("expected no exchange")
			return nil, nil
		})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=evil&code=abc", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if res := <-h.Result(); res.Error() == nil {
			t.Error("expected state error")
		}
	})

	t.Run("Provider Error", func(t *testing.T) {
		h := NewOAuthHandler("s1", exchangeOK)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s1&error=access_denied", nil))

		res := <-h.Result()
		if res.Error() == nil || !strings.Contains(res.Error().Error(), "access_denied") {
			t.Errorf("expected access_denied, got %v", res.Error())
		}
	})

	t.Run("Exchange Failure", func(t *testing.T) {
		boom := errors.New("boom")
		h := NewOAuthHandler("s1", func(context.Context, string) (*services.AuthResponse, error) { return nil, boom })
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=abc", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if res := <-h.Result(); !errors.Is(res.Error(), boom) {
			t.Errorf("expected boom, got %v", res.Error())
		}
	})

	t.Run("Only One Callback", func(t *testing.T) {
		h := NewOAuthHandler("s1", exchangeOK)
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=a", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=b", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected replay rejected, got %d", rec.Code)
		}
	})
}

func TestRouter(t *testing.T) {
	t.Run("Method Filtering", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("pong"))
		}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Body.String() != "pong" {
			t.Errorf("expected pong, got %q", rec.Body.String())
		}

		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("Empty Method Matches Any", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle("", "/any", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(method, "/any", nil))
			if rec.Code != http.StatusNoContent {
				t.Errorf("%s: expected 204, got %d", method, rec.Code)
			}
		}
	})

	t.Run("Callback Rejects POST", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handler(NewOAuthHandler("s", exchangeOK))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/callback?state=s&code=c", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("Middleware Order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}
		r := NewBasicRouter()
		r.Use(mw("first"), mw("second"))
		r.Handler(NewOAuthHandler("s", exchangeOK))
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=s&code=c", nil))

		if len(order) != 2 || order[0] != "first" || order[1] != "second" {
			t.Errorf("unexpected middleware order %v", order)
		}
	})

	t.Run("RequestLogger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := log.New(&buf)
		logger.SetLevel(log.DebugLevel)

		r := NewBasicRouter()
		r.Use(RequestLogger(logger))
		r.Handle(http.MethodGet, "/missing", http.NotFoundHandler())
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

		if !strings.Contains(buf.String(), "status=404") {
			t.Errorf("expected logged status, got %q", buf.String())
		}
	})
}
