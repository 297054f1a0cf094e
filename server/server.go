package chserver

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/openrport/userd/server/api/users"
	"github.com/openrport/userd/share/logger"
)

// Server represents a userd service
type Server struct {
	*logger.Logger
	config      *Config
	repo        users.Repository
	closeRepo   func() error
	apiListener *APIListener
}

// NewServer creates and returns a new userd server
func NewServer(ctx context.Context, config *Config) (*Server, error) {
	s := &Server{
		Logger: logger.NewLogger("server", config.Logging.LogOutput, config.Logging.LogLevel),
		config: config,
	}

	var err error
	s.repo, s.closeRepo, err = newRepository(ctx, config, s.Fork("storage:%s", config.Storage.Driver))
	if err != nil {
		return nil, err
	}

	s.apiListener, err = NewAPIListener(config, s.repo, s.Logger)
	if err != nil {
		_ = s.closeRepo()
		return nil, err
	}

	return s, nil
}

// Run starts the API and blocks until ctx is done or the listener fails.
// SIGHUP clears a poisoned store.
func (s *Server) Run(ctx context.Context) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	if err := s.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g := &errgroup.Group{}
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-hup:
				s.ClearPoison()
			}
		}
	})
	g.Go(func() error {
		defer cancel()
		return s.apiListener.Wait()
	})
	g.Go(func() error {
		<-ctx.Done()
		s.Infof("shutting down")
		return s.Close()
	})

	return g.Wait()
}

type poisonClearer interface {
	ClearPoison()
}

// ClearPoison makes a poisoned store usable again. Backends that cannot be
// poisoned ignore it.
func (s *Server) ClearPoison() {
	c, ok := s.repo.(poisonClearer)
	if !ok {
		s.Debugf("storage %q has no poisoned state to clear", s.config.Storage.Driver)
		return
	}
	c.ClearPoison()
	s.Infof("poisoned state of storage cleared on request")
}

// Start is responsible for kicking off the http server
func (s *Server) Start() error {
	return s.apiListener.Start(s.config.ListenAddress())
}

// Close stops the API first so that no request reaches a closed repository.
func (s *Server) Close() error {
	var errs *multierror.Error
	errs = multierror.Append(errs, s.apiListener.Close())
	errs = multierror.Append(errs, s.closeRepo())
	return errs.ErrorOrNil()
}
