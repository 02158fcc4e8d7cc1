package recog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"voxrelay/pkg/logger"
	"voxrelay/pkg/resilience"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency = 5
	DefaultCallTimeout = 30 * time.Second
)

var (
	// ErrTimeout marks an engine call that exceeded the per-call timeout.
	ErrTimeout = errors.New("timed out")
	// ErrNoSpeech is reported when an engine succeeds without any candidate.
	ErrNoSpeech = errors.New("no speech recognized")
	// ErrEnginePanic wraps a panic raised inside an engine.
	ErrEnginePanic = errors.New("engine panicked")
)

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithConcurrency caps the number of simultaneous engine calls per dispatch.
func WithConcurrency(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithCallTimeout bounds every engine call.
func WithCallTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithCircuitBreakers guards each engine with its own circuit breaker. Zero
// maxFailures disables the breakers.
func WithCircuitBreakers(maxFailures uint32, cooldown time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if maxFailures == 0 {
			return
		}
		d.breakers = make(map[string]*resilience.CircuitBreaker, d.registry.Len())
		for _, e := range d.registry.Engines() {
			d.breakers[e.Name()] = resilience.NewCircuitBreaker(e.Name(), maxFailures, cooldown)
		}
	}
}

// Dispatcher sends one audio file to every engine of a registry.
type Dispatcher struct {
	registry    *Registry
	concurrency int
	timeout     time.Duration
	breakers    map[string]*resilience.CircuitBreaker
}

func NewDispatcher(registry *Registry, opts ...DispatcherOption) *Dispatcher {
	if registry == nil {
		registry = &Registry{}
	}
	d := &Dispatcher{
		registry:    registry,
		concurrency: DefaultConcurrency,
		timeout:     DefaultCallTimeout,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Registry returns the engines this dispatcher calls.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Dispatch calls every engine concurrently and returns one report per engine
// in completion order. Engine failures never abort sibling calls.
func (d *Dispatcher) Dispatch(ctx context.Context, audioPath, languageHint string) []Report {
	engines := d.registry.Engines()
	results := make(chan Report, len(engines))

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for _, e := range engines {
		g.Go(func() error {
			results <- d.call(ctx, e, audioPath, languageHint)
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	reports := make([]Report, 0, len(engines))
	for r := range results {
		reports = append(reports, r)
	}
	return reports
}

func (d *Dispatcher) call(ctx context.Context, e Engine, audioPath, hint string) (rep Report) {
	rep = Report{Engine: e.Name(), Language: hint}
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			rep.Candidates = nil
			rep.Err = fmt.Errorf("%w: %v", ErrEnginePanic, p)
		}
		log := logger.With(
			zap.String("engine", rep.Engine),
			zap.String("language", rep.Language),
			zap.Duration("elapsed", time.Since(start)))
		if rep.Err != nil {
			fields := []zap.Field{zap.Error(rep.Err)}
			if cb, ok := d.breakers[rep.Engine]; ok {
				fields = append(fields, zap.Stringer("breaker", cb.GetState()))
			}
			log.Warn("Speech engine failed", fields...)
			return
		}
		log.Debug("Speech engine finished", zap.Int("candidates", len(rep.Candidates)))
	}()

	lang, err := e.ResolveLanguage(hint)
	if err != nil {
		rep.Err = err
		return rep
	}
	rep.Language = lang

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var candidates []string
	recognize := func(ctx context.Context) error {
		var err error
		candidates, err = d.recognize(ctx, e, audioPath, lang)
		return err
	}

	if cb, ok := d.breakers[e.Name()]; ok {
		err = cb.Execute(callCtx, recognize)
	} else {
		err = recognize(callCtx)
	}

	candidates = nonBlank(candidates)

	switch {
	case err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded):
		rep.Err = fmt.Errorf("%w after %s", ErrTimeout, d.timeout)
	case err != nil:
		rep.Err = err
	case len(candidates) == 0:
		rep.Err = ErrNoSpeech
	default:
		rep.Candidates = candidates
	}
	return rep
}

// recognize runs the engine on its own goroutine so a call that ignores ctx
// still yields a report once ctx is done.
func (d *Dispatcher) recognize(ctx context.Context, e Engine, audioPath, lang string) ([]string, error) {
	type result struct {
		candidates []string
		err        error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- result{err: fmt.Errorf("%w: %v", ErrEnginePanic, p)}
			}
		}()
		c, err := e.Recognize(ctx, audioPath, lang)
		done <- result{candidates: c, err: err}
	}()

	select {
	case r := <-done:
		return r.candidates, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func nonBlank(candidates []string) []string {
	var out []string
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}
