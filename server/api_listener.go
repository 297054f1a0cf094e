package chserver

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/jpillora/requestlog"
	"golang.org/x/sync/errgroup"

	"github.com/openrport/userd/server/api/users"
	chshare "github.com/openrport/userd/share"
	"github.com/openrport/userd/share/logger"
)

const DefaultMaxHeaderBytes = 1 << 20

type APIListener struct {
	*logger.Logger

	config            *Config
	repo              users.Repository
	router            *mux.Router
	handler           http.Handler
	httpServer        *chshare.HTTPServer
	requestLogOptions *requestlog.Options
	accessLogFile     io.WriteCloser
}

func NewAPIListener(config *Config, repo users.Repository, l *logger.Logger) (*APIListener, error) {
	a := &APIListener{
		Logger: l.Fork("api"),
		config: config,
		repo:   repo,
	}

	if config.API.EnableRequestLog {
		a.requestLogOptions = config.InitRequestLogOptions()
	}

	if config.API.AccessLogFile != "" {
		f, err := os.OpenFile(config.API.AccessLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0640)
		if err != nil {
			return nil, fmt.Errorf("can't open access log file %s: %w", config.API.AccessLogFile, err)
		}
		a.accessLogFile = f
	}

	var tlsOption chshare.ServerOption
	if config.Server.TLSEnabled() {
		tlsOption = chshare.WithTLS(config.Server.CertFile, config.Server.KeyFile)
	}
	a.httpServer = chshare.NewHTTPServer(
		DefaultMaxHeaderBytes,
		a.Logger,
		chshare.WithShutdownTimeout(config.Server.ShutdownTimeout),
		tlsOption,
	)

	a.initRouter()

	return a, nil
}

func (al *APIListener) Start(addr string) error {
	scheme := "http"
	if al.config.Server.TLSEnabled() {
		scheme = "https"
	}
	al.Infof("API Listening on %s://%s...", scheme, addr)

	return al.httpServer.GoListenAndServe(addr, al.handler)
}

// Addr returns the bound address once the listener is started.
func (al *APIListener) Addr() net.Addr {
	return al.httpServer.Addr()
}

func (al *APIListener) Wait() error {
	if al.httpServer == nil {
		return nil
	}
	return al.httpServer.Wait()
}

func (al *APIListener) Close() error {
	g := &errgroup.Group{}
	if al.httpServer != nil {
		g.Go(al.httpServer.Close)
	}
	if al.accessLogFile != nil {
		g.Go(al.accessLogFile.Close)
	}

	return g.Wait()
}
