package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/rankify/internal/shared"
	"golang.org/x/oauth2"
)

// DefaultAuthTimeout bounds how long [BrowserFlow] waits for the user to approve access.
const DefaultAuthTimeout = 2 * time.Minute

// BrowserFlow runs the authorization code flow through the user's browser and a local callback server.
type BrowserFlow struct {
	Addr    string                // listen address, e.g. 127.0.0.1:8080
	Open    func(url string) error // defaults to [shared.OpenBrowser]
	Out     io.Writer             // user-facing prompts
	Logger  *log.Logger
	Timeout time.Duration

	// ready is called with the bound address before the browser is opened.
	ready func(addr string)
}

// NewBrowserFlow creates a flow listening on host:port.
func NewBrowserFlow(host string, port int, out io.Writer, logger *log.Logger) *BrowserFlow {
	return &BrowserFlow{
		Addr:    net.JoinHostPort(host, fmt.Sprint(port)),
		Open:    shared.OpenBrowser,
		Out:     out,
		Logger:  logger,
		Timeout: DefaultAuthTimeout,
	}
}

// Authorize matches the services.Authorizer signature.
//
// It serves the callback on the redirect URI's path, prints and opens the authorization URL, then waits for the
// callback, a server failure, the timeout or ctx cancellation, whichever comes first.
func (f *BrowserFlow) Authorize(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: oauth config is required", shared.ErrInvalidArgument)
	}

	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	path := "/callback"
	if u, err := url.Parse(config.RedirectURL); err == nil && u.Path != "" {
		path = u.Path
	}

	handler := NewOAuthHandler(config, state, path)
	router := NewBasicRouter()
	if f.Logger != nil {
		router.Use(RequestLogger(f.Logger))
	}
	router.Handler(handler)

	listener, err := net.Listen("tcp", f.Addr)
	if err != nil {
		return nil, fmt.Errorf("%w: could not listen on %s: %v", shared.ErrServiceUnavailable, f.Addr, err)
	}

	httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	serverErrors := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			f.warn("error shutting down callback server", "error", err)
		}
	}()

	if f.Logger != nil {
		f.Logger.Info("started callback server", "addr", listener.Addr().String(), "routes", router.Patterns())
	}
	if f.ready != nil {
		f.ready(listener.Addr().String())
	}

	authURL := config.AuthCodeURL(state)
	f.printf("→ Opening browser for Spotify authorization...\n")
	open := f.Open
	if open == nil {
		open = shared.OpenBrowser
	}
	if err := open(authURL); err != nil {
		f.warn("failed to open browser automatically", "error", err)
		f.printf("⚠ Could not open browser automatically.\nPlease open this URL in your browser:\n%s\n\n", authURL)
	}

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultAuthTimeout
	}
	f.printf("→ Waiting for authorization (%s timeout)...\n", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-handler.Result():
		if result.Err != nil {
			return nil, result.Err
		}
		if result.Token == nil {
			return nil, errors.New("no token received")
		}
		return result.Token, nil
	case err := <-serverErrors:
		return nil, fmt.Errorf("%w: callback server: %v", shared.ErrServiceUnavailable, err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *BrowserFlow) printf(format string, args ...any) {
	if f.Out != nil {
		fmt.Fprintf(f.Out, format, args...)
	}
}

func (f *BrowserFlow) warn(msg string, kv ...any) {
	if f.Logger != nil {
		f.Logger.Warn(msg, kv...)
	}
}
