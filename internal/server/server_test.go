package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/rankify/internal/shared"
	"golang.org/x/oauth2"
)

func fakeTokenServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var exchanges atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.Form.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"invalid_grant"}`)
			return
		}
		exchanges.Add(1)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"access-1","token_type":"Bearer","refresh_token":"refresh-1","expires_in":3600}`)
	}))
	t.Cleanup(srv.Close)
	return srv, &exchanges
}

func testOAuthConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://127.0.0.1:8080/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.example.com/authorize",
			TokenURL: tokenURL,
		},
	}
}

func TestOAuthHandler(t *testing.T) {
	t.Run("Routes", func(t *testing.T) {
		h := NewOAuthHandler(testOAuthConfig(""), "state", "")
		routes := h.Routes()
		if len(routes) != 1 || routes[0] != "/callback" {
			t.Errorf("expected [/callback], got %v", routes)
		}
	})

	t.Run("exchanges code for token", func(t *testing.T) {
		tokens, exchanges := fakeTokenServer(t)
		h := NewOAuthHandler(testOAuthConfig(tokens.URL), "state-1", "/callback")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=good-code&state=state-1", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Authorization Successful") {
			t.Error("expected success page")
		}

		result := <-h.Result()
		if result.Err != nil {
			t.Fatalf("unexpected error: %v", result.Err)
		}
		if result.Token.AccessToken != "access-1" || result.Token.RefreshToken != "refresh-1" {
			t.Errorf("unexpected token: %+v", result.Token)
		}
		if exchanges.Load() != 1 {
			t.Errorf("expected 1 exchange, got %d", exchanges.Load())
		}
	})

	t.Run("state mismatch", func(t *testing.T) {
		tokens, exchanges := fakeTokenServer(t)
		h := NewOAuthHandler(testOAuthConfig(tokens.URL), "expected", "/callback")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=good-code&state=forged", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if result := <-h.Result(); result.Err == nil || !strings.Contains(result.Err.Error(), "state") {
			t.Errorf("expected state error, got %v", result.Err)
		}
		if exchanges.Load() != 0 {
			t.Error("expected no exchange on state mismatch")
		}
	})

	t.Run("access denied", func(t *testing.T) {
		h := NewOAuthHandler(testOAuthConfig(""), "s", "/callback")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&error=access_denied", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if result := <-h.Result(); result.Err == nil || !strings.Contains(result.Err.Error(), "access_denied") {
			t.Errorf("expected denial error, got %v", result.Err)
		}
	})

	t.Run("exchange failure", func(t *testing.T) {
		tokens, _ := fakeTokenServer(t)
		h := NewOAuthHandler(testOAuthConfig(tokens.URL), "s", "/callback")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=bad-code", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if result := <-h.Result(); result.Err == nil {
			t.Error("expected exchange error")
		}
	})

	t.Run("only first callback is processed", func(t *testing.T) {
		tokens, exchanges := fakeTokenServer(t)
		h := NewOAuthHandler(testOAuthConfig(tokens.URL), "s", "/callback")

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=s&code=good-code", nil))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=good-code", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for replayed callback, got %d", rec.Code)
		}
		if exchanges.Load() != 1 {
			t.Errorf("expected 1 exchange, got %d", exchanges.Load())
		}

		<-h.Result()
		if _, ok := <-h.Result(); ok {
			t.Error("expected result channel to be closed")
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("method filtering", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "pong")
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
			t.Errorf("unexpected response: %d %q", rec.Code, rec.Body.String())
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
		if !strings.Contains(rec.Header().Get("Allow"), http.MethodGet) {
			t.Errorf("expected Allow header to list GET, got %q", rec.Header().Get("Allow"))
		}

		if got := router.Patterns(); len(got) != 1 || got[0] != "GET /ping" {
			t.Errorf("unexpected patterns: %v", got)
		}
	})

	t.Run("middleware order", func(t *testing.T) {
		var order []string
		tag := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(tag("first"), tag("second"))
		router.Handle(http.MethodGet, "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		want := []string{"first", "second", "handler"}
		if strings.Join(order, ",") != strings.Join(want, ",") {
			t.Errorf("expected %v, got %v", want, order)
		}
	})

	t.Run("RequestLogger omits query", func(t *testing.T) {
		var buf strings.Builder
		logger := shared.NewLogger(&buf)
		shared.SetLogLevel(logger, "debug")

		router := NewBasicRouter()
		router.Use(RequestLogger(logger))
		router.Handle(http.MethodGet, "/callback", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?code=secret", nil))

		out := buf.String()
		if !strings.Contains(out, "/callback") || !strings.Contains(out, "418") {
			t.Errorf("expected path and status in log, got %q", out)
		}
		if strings.Contains(out, "secret") {
			t.Errorf("log leaked the query string: %q", out)
		}
	})
}

func TestBrowserFlow(t *testing.T) {
	newFlow := func(out io.Writer) *BrowserFlow {
		flow := NewBrowserFlow("127.0.0.1", 0, out, nil)
		flow.Timeout = 5 * time.Second
		return flow
	}

	t.Run("completes when the callback arrives", func(t *testing.T) {
		tokens, _ := fakeTokenServer(t)
		var out strings.Builder
		flow := newFlow(&out)

		var addr string
		flow.ready = func(a string) { addr = a }
		flow.Open = func(authURL string) error {
			u, err := url.Parse(authURL)
			if err != nil {
				return err
			}
			state := u.Query().Get("state")
			go func() {
				resp, err := http.Get(fmt.Sprintf("http://%s/callback?code=good-code&state=%s", addr, state))
				if err == nil {
					resp.Body.Close()
				}
			}()
			return nil
		}

		token, err := flow.Authorize(context.Background(), testOAuthConfig(tokens.URL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token.AccessToken != "access-1" {
			t.Errorf("expected access-1, got %q", token.AccessToken)
		}
		if !strings.Contains(out.String(), "Opening browser") {
			t.Errorf("expected prompt, got %q", out.String())
		}
	})

	t.Run("prints URL when browser cannot open", func(t *testing.T) {
		var out strings.Builder
		flow := newFlow(&out)
		flow.Timeout = 50 * time.Millisecond
		flow.Open = func(string) error { return errors.New("no browser") }

		_, err := flow.Authorize(context.Background(), testOAuthConfig(""))
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
		if !strings.Contains(out.String(), "https://accounts.example.com/authorize") {
			t.Errorf("expected auth URL in output, got %q", out.String())
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		flow := newFlow(io.Discard)
		ctx, cancel := context.WithCancel(context.Background())
		flow.Open = func(string) error {
			cancel()
			return nil
		}

		_, err := flow.Authorize(ctx, testOAuthConfig(""))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("nil config", func(t *testing.T) {
		if _, err := newFlow(io.Discard).Authorize(context.Background(), nil); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
