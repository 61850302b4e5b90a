package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/desertthunder/ytpod/internal/services"
)

// CodeExchanger trades an authorization code for a backend session.
type CodeExchanger func(ctx context.Context, code string) (*services.AuthResponse, error)

// OAuthResult is the outcome of one login attempt.
type OAuthResult struct {
	Auth *services.AuthResponse
	err  error
}

func (o *OAuthResult) Error() error {
	return o.err
}

var signedInPage = template.Must(template.New("signed-in").Parse(`<!DOCTYPE html>
<html>
<head>
<title>ytpod</title>
<style>
body { font-family: system-ui, sans-serif; display: grid; place-items: center; height: 100vh; margin: 0; background: #fafafa; }
main { text-align: center; }
h1 { color: #e11d48; }
p { color: #666; }
</style>
</head>
<body>
<main>
<h1>✓ Signed in{{with .}} as {{.}}{{end}}</h1>
<p>Return to the terminal to continue.</p>
</main>
</body>
</html>
`))

// OAuthHandler serves the provider redirect of a PocketBase OAuth2 login.
// Only the first callback is processed; later ones are rejected.
type OAuthHandler struct {
	exchange CodeExchanger
	state    string
	results  chan OAuthResult
	used     atomic.Bool
	once     sync.Once
}

// NewOAuthHandler creates a handler expecting state, the value issued by the backend's auth-methods
// endpoint for the chosen provider.
func NewOAuthHandler(state string, exchange CodeExchanger) *OAuthHandler {
	return &OAuthHandler{
		exchange: exchange,
		state:    state,
		results:  make(chan OAuthResult, 1),
	}
}

func (h *OAuthHandler) Routes() []string {
	return []string{"GET /callback"}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.used.CompareAndSwap(false, true) {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	switch {
	case q.Get("state") != h.state:
		h.fail(w, http.StatusBadRequest, "Invalid state parameter", errors.New("invalid state parameter"))
	case q.Get("code") == "":
		h.fail(w, http.StatusBadRequest, "Authorization failed",
			fmt.Errorf("authorization failed: %s - %s", q.Get("error"), q.Get("error_description")))
	default:
		auth, err := h.exchange(r.Context(), q.Get("code"))
		if err != nil {
			h.fail(w, http.StatusInternalServerError, "Sign in failed", fmt.Errorf("code exchange failed: %w", err))
			return
		}
		h.Send(OAuthResult{Auth: auth})

		email := ""
		if auth != nil {
			email = auth.Record.Email
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		signedInPage.Execute(w, email)
	}
}

func (h *OAuthHandler) fail(w http.ResponseWriter, status int, msg string, err error) {
	h.Send(OAuthResult{err: err})
	http.Error(w, msg, status)
}

// Send delivers the result. Only the first call has an effect.
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.results <- result
		close(h.results)
	})
}

// Result receives exactly one result, then is closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}
