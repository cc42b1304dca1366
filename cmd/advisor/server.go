package main

import (
	"context"
	_ "embed"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/m-mizutani/advisor"
	"github.com/m-mizutani/goerr/v2"
)

//go:embed static/index.html
var indexHTML string

var indexTmpl = template.Must(template.New("index").Parse(indexHTML))

type serverOption func(*server)

func withAddr(addr string) serverOption {
	return func(s *server) {
		s.addr = addr
	}
}

func withRepository(repo transcriptStore) serverOption {
	return func(s *server) {
		s.repo = repo
	}
}

func withTitle(title, description string) serverOption {
	return func(s *server) {
		s.title = title
		s.description = description
	}
}

func withOpenBrowser() serverOption {
	return func(s *server) {
		s.openBrowser = true
	}
}

func withLogger(logger *slog.Logger) serverOption {
	return func(s *server) {
		s.logger = logger
	}
}

// server exposes one Chat over HTTP. Handlers run concurrently, so every access to the
// chat holds mu.
type server struct {
	addr        string
	repo        transcriptStore
	title       string
	description string
	openBrowser bool
	logger      *slog.Logger
	mux         *http.ServeMux

	mu   sync.Mutex
	chat *advisor.Chat
}

func newServer(chat *advisor.Chat, opts ...serverOption) *server {
	s := &server{
		addr:        ":8080",
		chat:        chat,
		title:       defaultAppName,
		description: defaultAppDescription,
		logger:      slog.Default(),
		mux:         http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *server) setupRoutes() {
	// API routes
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/history", s.handleHistory)
	s.mux.HandleFunc("POST /api/messages", s.handlePostMessage)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.HandleFunc("GET /api/summary", s.handleSummary)
	s.mux.HandleFunc("POST /api/clear", s.handleClear)
	s.mux.HandleFunc("GET /api/export", s.handleExport)
	s.mux.HandleFunc("POST /api/save", s.handleSave)
	s.mux.HandleFunc("GET /api/model", s.handleModel)
	s.mux.HandleFunc("POST /api/ping", s.handlePing)
	s.mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	s.mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("POST /api/sessions/{id}/resume", s.handleResumeSession)

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
}

func (s *server) handler() http.Handler {
	return s.mux
}

func (s *server) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return goerr.Wrap(err, "failed to listen", goerr.V("addr", s.addr))
	}

	addr := listener.Addr().String()
	url := "http://" + addr
	s.logger.Info("starting advisor server", slog.String("addr", addr), slog.String("url", url))

	if s.openBrowser {
		openBrowser(url)
	}

	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return goerr.Wrap(err, "server error")
	}

	return nil
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	if err := cmd.Start(); err != nil {
		slog.Warn("failed to open browser", slog.Any("error", err))
	}
}
