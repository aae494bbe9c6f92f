package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/soypat/figures"
	"golang.org/x/sync/errgroup"
)

// Loader loads a model from a name or URL.
type Loader interface {
	Load(ctx context.Context, url string) (*Node, error)
}

// LoaderFunc adapts a function to [Loader].
type LoaderFunc func(ctx context.Context, url string) (*Node, error)

func (f LoaderFunc) Load(ctx context.Context, url string) (*Node, error) { return f(ctx, url) }

// Future is the pending result of a single load.
type Future struct {
	URL  string
	done chan struct{}
	node *Node
	err  error
}

// Go starts loading url on a new goroutine.
func Go(ctx context.Context, l Loader, url string) *Future {
	f := newFuture(url)
	go func() {
		f.resolve(l.Load(ctx, url))
	}()
	return f
}

func newFuture(url string) *Future {
	return &Future{URL: url, done: make(chan struct{})}
}

func (f *Future) resolve(n *Node, err error) {
	f.node, f.err = n, err
	close(f.done)
}

// Done is closed once the load finishes.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the load finishes or ctx is done.
func (f *Future) Wait(ctx context.Context) (*Node, error) {
	select {
	case <-f.done:
		return f.node, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// LoadPolicy decides when loaded models are delivered.
type LoadPolicy uint8

const (
	// FireAndForget delivers each model as soon as it loads. Failures go to
	// the error handler and do not affect other loads.
	FireAndForget LoadPolicy = iota
	// JoinAll delivers models in request order once every load succeeded.
	// The first failure cancels the remaining loads and nothing is delivered.
	JoinAll
)

func (p LoadPolicy) String() string {
	switch p {
	case FireAndForget:
		return "fire-and-forget"
	case JoinAll:
		return "join-all"
	}
	return fmt.Sprintf("LoadPolicy(%d)", p)
}

// LoadSetConfig configures a [LoadSet].
type LoadSetConfig struct {
	Loader Loader
	Policy LoadPolicy
	// OnLoad receives loaded models. With FireAndForget it is called from
	// loading goroutines, one call at a time.
	OnLoad func(url string, n *Node)
	// OnError is the single error handler. Defaults to logging at error level.
	OnError func(url string, err error)
}

// LoadError is a failed load of URL.
type LoadError struct {
	URL string
	Err error
}

func (e *LoadError) Error() string { return "loading " + e.URL + ": " + e.Err.Error() }

func (e *LoadError) Unwrap() error { return e.Err }

// LoadSet runs many loads and joins them under one policy.
type LoadSet struct {
	cfg     LoadSetConfig
	g       *errgroup.Group
	ctx     context.Context
	mu      sync.Mutex
	futures []*Future
	// cb serializes handler calls.
	cb sync.Mutex
}

// NewLoadSet returns a LoadSet whose loads are canceled with ctx.
func NewLoadSet(ctx context.Context, cfg LoadSetConfig) (*LoadSet, error) {
	if cfg.Loader == nil {
		return nil, errors.New("nil loader")
	}
	if cfg.OnError == nil {
		cfg.OnError = logLoadError
	}
	g, gctx := errgroup.WithContext(ctx)
	return &LoadSet{cfg: cfg, g: g, ctx: gctx}, nil
}

func logLoadError(url string, err error) {
	figures.Logger().Error("model load failed", slog.String("url", url), slog.String("err", err.Error()))
}

// Load starts loading url and returns its future.
func (s *LoadSet) Load(url string) *Future {
	f := newFuture(url)
	s.mu.Lock()
	s.futures = append(s.futures, f)
	s.mu.Unlock()
	s.g.Go(func() error {
		n, err := s.cfg.Loader.Load(s.ctx, url)
		f.resolve(n, err)
		if err != nil {
			err = &LoadError{URL: url, Err: err}
			if s.cfg.Policy == FireAndForget {
				s.report(url, err)
				return nil
			}
			return err
		}
		if s.cfg.Policy == FireAndForget && s.cfg.OnLoad != nil {
			s.cb.Lock()
			s.cfg.OnLoad(url, n)
			s.cb.Unlock()
		}
		return nil
	})
	return f
}

func (s *LoadSet) report(url string, err error) {
	s.cb.Lock()
	defer s.cb.Unlock()
	s.cfg.OnError(url, err)
}

// Wait blocks until every load finished. With JoinAll it returns the first
// error after reporting it to the error handler, or delivers all models in
// request order. With FireAndForget it always returns nil.
func (s *LoadSet) Wait() error {
	err := s.g.Wait()
	s.mu.Lock()
	futures := s.futures
	s.mu.Unlock()
	if s.cfg.Policy != JoinAll {
		return nil
	}
	if err != nil {
		var lerr *LoadError
		url := ""
		if errors.As(err, &lerr) {
			url = lerr.URL
		}
		s.cfg.OnError(url, err)
		return err
	}
	if s.cfg.OnLoad != nil {
		for _, f := range futures {
			s.cfg.OnLoad(f.URL, f.node)
		}
	}
	return nil
}

// Futures returns the futures of every load started so far.
func (s *LoadSet) Futures() []*Future {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Future(nil), s.futures...)
}
