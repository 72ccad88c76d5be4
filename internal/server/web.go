package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/playat/playat/common"
	"github.com/playat/playat/internal/job"
	"github.com/playat/playat/internal/playback"
	"github.com/playat/playat/pkg/logger"
	"github.com/playat/playat/pkg/media"
	"golang.org/x/net/netutil"
)

//go:embed templates/index.html
var templatesFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

// WebConfig configures the HTTP listener.
type WebConfig struct {
	Port int
	// ListenAll binds 0.0.0.0 instead of 127.0.0.1.
	ListenAll bool
	// MaxConns caps concurrently served connections.
	MaxConns int
}

// WebServer serves the HTML form, the job table and the JSON-RPC
// endpoints. No handler ever waits for a deadline: submitted jobs go to
// the OS scheduler.
type WebServer struct {
	cfg    WebConfig
	jobs   Jobs
	rpc    *RPCServer
	log    logger.Logger
	server *http.Server
	mu     sync.Mutex
}

func NewWebServer(l logger.Logger, jobs Jobs, rpc *RPCServer, cfg WebConfig) *WebServer {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &WebServer{cfg: cfg, jobs: jobs, rpc: rpc, log: l}
}

// formValues echoes the submitted form back after an error.
type formValues struct {
	Media  string
	Type   string
	Device string
	At     string
	Date   string
	Time   string
}

func (f formValues) params() common.CreateJobParams {
	return common.CreateJobParams{
		Media:  f.Media,
		Type:   f.Type,
		Device: f.Device,
		At:     f.At,
		Date:   f.Date,
		Time:   f.Time,
	}
}

type indexPage struct {
	Form        formValues
	Kinds       []media.Kind
	Devices     []playback.Device
	DeviceError string
	Jobs        []job.Record
	Errors      []string
	Notice      string
}

func (s *WebServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("POST /jobs", sameOrigin(s.log, http.HandlerFunc(s.handleCreate)))
	mux.Handle("POST /jobs/{id}/cancel", sameOrigin(s.log, http.HandlerFunc(s.handleCancel)))
	if s.rpc != nil {
		mux.Handle("POST /jsonrpc", requireToken(s.rpc.secret, s.rpc.bridge))
		mux.Handle("GET /jsonrpc/ws", requireToken(s.rpc.secret, http.HandlerFunc(s.rpc.handleWS)))
	}
	return mux
}

// sameOrigin rejects form posts a browser sent from another site. The
// form routes carry no token; requests without Sec-Fetch-Site or Origin
// do not come from a browser and pass.
func sameOrigin(l logger.Logger, next http.Handler) http.Handler {
	cop := http.NewCrossOriginProtection()
	cop.SetDenyHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l.Warning("web: rejected cross-site %s %s from origin %q", r.Method, r.URL.Path, r.Header.Get("Origin"))
		http.Error(w, "cross-site request rejected", http.StatusForbidden)
	}))
	return cop.Handler(next)
}

func (s *WebServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := indexPage{Notice: r.URL.Query().Get("notice")}
	if msg := r.URL.Query().Get("error"); msg != "" {
		page.Errors = append(page.Errors, msg)
	}
	s.render(w, r, http.StatusOK, page)
}

func (s *WebServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	form := formValues{
		Media:  strings.TrimSpace(r.PostFormValue("media")),
		Type:   strings.TrimSpace(r.PostFormValue("type")),
		Device: strings.TrimSpace(r.PostFormValue("device")),
		At:     strings.TrimSpace(r.PostFormValue("iso_at")),
		Date:   strings.TrimSpace(r.PostFormValue("date")),
		Time:   strings.TrimSpace(r.PostFormValue("time")),
	}
	page := indexPage{Form: form}
	if form.Media == "" {
		page.Errors = append(page.Errors, "Media is required.")
		s.render(w, r, http.StatusUnprocessableEntity, page)
		return
	}
	rec, err := s.create(r.Context(), form.params())
	if err != nil {
		page.Errors = append(page.Errors, formError(err))
		status := http.StatusUnprocessableEntity
		if rec != nil {
			// registered with the OS but not recorded
			status = http.StatusInternalServerError
		}
		s.render(w, r, status, page)
		return
	}
	notice := fmt.Sprintf("Created %s job %s for %s.", rec.Backend, rec.ID, rec.Spec.Deadline.Format("2006-01-02 15:04:05"))
	redirect(w, r, "notice", notice)
}

func (s *WebServer) create(ctx context.Context, p common.CreateJobParams) (*job.Record, error) {
	req, err := p.Request()
	if err != nil {
		return nil, err
	}
	return s.jobs.Create(ctx, req)
}

func (s *WebServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := s.jobs.Cancel(r.Context(), id)
	if err != nil {
		redirect(w, r, "error", formError(err))
		return
	}
	redirect(w, r, "notice", fmt.Sprintf("Cancelled %s job %s.", rec.Backend, rec.ID))
}

// render fills the device and job lists and writes the page. Listing
// failures are shown on the page rather than failing the request.
func (s *WebServer) render(w http.ResponseWriter, r *http.Request, status int, page indexPage) {
	page.Kinds = []media.Kind{media.KindTrack, media.KindAlbum, media.KindPlaylist, media.KindArtist}
	devices, err := s.jobs.Devices(r.Context())
	if err != nil {
		page.DeviceError = err.Error()
	}
	page.Devices = devices
	jobs, err := s.jobs.List(r.Context())
	if err != nil {
		page.Errors = append(page.Errors, "listing jobs: "+err.Error())
	}
	page.Jobs = jobs

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := indexTemplate.Execute(w, page); err != nil {
		s.log.Error("rendering index: %v", err)
	}
}

func redirect(w http.ResponseWriter, r *http.Request, key, msg string) {
	http.Redirect(w, r, "/?"+url.Values{key: {msg}}.Encode(), http.StatusSeeOther)
}

// formError names the error kind ahead of the detail.
func formError(err error) string {
	kind := errorKind(err)
	msg := err.Error()
	if kind == "error" || strings.HasPrefix(msg, kind) {
		return msg
	}
	return kind + ": " + msg
}

func (s *WebServer) addr() string {
	host := "127.0.0.1"
	if s.cfg.ListenAll {
		host = "0.0.0.0"
	}
	return net.JoinHostPort(host, fmt.Sprint(s.cfg.Port))
}

// Listen opens the TCP listener, capped at MaxConns concurrent connections.
func (s *WebServer) Listen() (net.Listener, error) {
	l, err := net.Listen("tcp", s.addr())
	if err != nil {
		return nil, err
	}
	if s.cfg.MaxConns > 0 {
		l = netutil.LimitListener(l, s.cfg.MaxConns)
	}
	return l, nil
}

// Serve serves on l until Shutdown.
func (s *WebServer) Serve(l net.Listener) error {
	s.mu.Lock()
	s.server = &http.Server{
		Handler:           s.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	s.log.Info("web surface listening on http://%s", l.Addr())
	err := srv.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the web server.
func (s *WebServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
