package main

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	"github.com/wanmail/stool"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	var (
		addr     string
		sessions int64
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve screenshots over HTTP",
		Long: `Serve screenshots over HTTP.

GET /?url=URL returns a PNG screenshot of the page; /healthz returns ok.
URL must be an absolute http or https URL. Every request starts its own
browser.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.config(cmd)
			if err != nil {
				return err
			}
			if sessions < 1 {
				return fmt.Errorf("--sessions must be at least 1, got %d", sessions)
			}
			if c.Debug {
				setDebug(true)
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           newScreenshotServer(c, sessions),
				ReadHeaderTimeout: 10 * time.Second,
			}
			glog.Infof("Listening on %s", addr)
			return srv.ListenAndServe()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	cmd.Flags().Int64Var(&sessions, "sessions", 2, "maximum number of browsers running at once")
	return cmd
}

// screenshotServer starts a browser per request and returns a screenshot
// of the requested page.
type screenshotServer struct {
	config   *stool.Config
	sessions *semaphore.Weighted
}

func newScreenshotServer(c *stool.Config, sessions int64) http.Handler {
	s := &screenshotServer{config: c, sessions: semaphore.NewWeighted(sessions)}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.screenshotHandle)
	mux.HandleFunc("/healthz", healthCheckHandler)
	return mux
}

func (s *screenshotServer) screenshotHandle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	raw := r.URL.Query().Get("url")
	if raw == "" {
		http.Error(w, "missing url parameter", http.StatusBadRequest)
		return
	}
	page, err := pageURL(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.sessions.Acquire(r.Context(), 1); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer s.sessions.Release(1)

	t, err := launch(s.config)
	if err != nil {
		http.Error(w, fmt.Sprintf("Error starting the %s browser: %v", s.config.Browser, err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := t.Close(); err != nil {
			glog.Warningf("Error closing the browser: %v", err)
		}
	}()

	if err := t.Get(page); err != nil {
		http.Error(w, fmt.Sprintf("Get(%q) returned error: %v", page, err), http.StatusBadGateway)
		return
	}
	data, err := t.Screenshot(nil)
	if err != nil {
		http.Error(w, fmt.Sprintf("Screenshot() returned error: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(data); err != nil {
		glog.Warningf("Write() returned error: %v", err)
	}
}

// pageURL accepts only absolute http and https URLs. Tools.Get would
// otherwise load local files and inline HTML.
func pageURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url parameter: %v", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("url parameter %q is not an absolute http or https URL", raw)
	}
	return u.String(), nil
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "ok")
}
