package chshare

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/openrport/userd/share/logger"
)

type ServerOption func(*HTTPServer)

func WithTLS(certFile string, keyFile string) ServerOption {
	return func(s *HTTPServer) {
		s.certFile = certFile
		s.keyFile = keyFile
	}
}

func WithShutdownTimeout(timeout time.Duration) ServerOption {
	return func(s *HTTPServer) {
		s.shutdownTimeout = timeout
	}
}

// HTTPServer extends net/http Server and
// adds graceful shutdowns
type HTTPServer struct {
	*http.Server
	listener        net.Listener
	running         chan error
	mu              sync.Mutex
	isRunning       bool
	certFile        string
	keyFile         string
	shutdownTimeout time.Duration
	logger          *logger.Logger
}

// NewHTTPServer creates a new HTTPServer
func NewHTTPServer(maxHeaderBytes int, l *logger.Logger, options ...ServerOption) *HTTPServer {
	var httpLogger *logger.Logger
	if l != nil {
		httpLogger = l.Fork("http-server")
	}
	s := &HTTPServer{
		Server:          &http.Server{MaxHeaderBytes: maxHeaderBytes, ReadHeaderTimeout: 5 * time.Second},
		running:         make(chan error, 1),
		shutdownTimeout: 5 * time.Second,
		logger:          httpLogger,
	}

	for _, o := range options {
		if o != nil {
			o(s)
		}
	}

	return s
}

func (h *HTTPServer) GoListenAndServe(addr string, handler http.Handler) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.isRunning = true
	h.Handler = handler
	h.listener = l
	h.mu.Unlock()
	go func() {
		if h.certFile != "" && h.keyFile != "" {
			h.logger.Debugf("serving HTTPS on %s", l.Addr())
			h.closeWith(h.ServeTLS(l, h.certFile, h.keyFile))
		} else {
			h.logger.Debugf("serving HTTP on %s", l.Addr())
			h.closeWith(h.Serve(l))
		}
	}()
	return nil
}

// Addr returns the address the server listens on, nil before GoListenAndServe.
func (h *HTTPServer) Addr() net.Addr {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener == nil {
		return nil
	}
	return h.listener.Addr()
}

func (h *HTTPServer) closeWith(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.isRunning {
		return
	}
	h.isRunning = false
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	h.running <- err
}

// Close stops accepting connections and waits for in-flight requests
// up to the shutdown timeout.
func (h *HTTPServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
	defer cancel()
	err := h.Shutdown(ctx)
	h.closeWith(nil)
	return err
}

// Wait blocks until the server stops and returns the serving error, if any.
func (h *HTTPServer) Wait() error {
	h.mu.Lock()
	started := h.listener != nil
	h.mu.Unlock()
	if !started {
		return errors.New("not started")
	}
	return <-h.running
}
