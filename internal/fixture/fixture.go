// Package fixture wires the truncation engine into Go tests so every test
// starts from an empty database.
//
//	func TestCheckout(t *testing.T) {
//	    pool := testPool(t)
//	    fixture.TruncateAfter(t, pool)
//	    ...
//	}
package fixture

import (
	"context"
	"testing"
	"time"

	"github.com/koustreak/tablewipe/internal/connect"
	"github.com/koustreak/tablewipe/internal/logger"
	"github.com/koustreak/tablewipe/internal/truncate"
)

type options struct {
	verbose  bool
	quiet    bool
	resolver connect.Resolver
	log      *logger.Logger
	timeout  time.Duration
}

// Option configures a fixture truncation.
type Option func(*options)

// Verbose echoes every DELETE and its row count to the test log.
func Verbose() Option {
	return func(o *options) { o.verbose = true }
}

// Quiet logs truncation failures instead of failing the test.
func Quiet() Option {
	return func(o *options) { o.quiet = true }
}

// WithResolver overrides how the source handle becomes a session.
func WithResolver(r connect.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithLogger sets the structured logger handed to the engine.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithTimeout bounds one truncation. Zero means no deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// TruncateAfter empties every table reachable through src once tb and its
// subtests finish. A nil src registers nothing.
func TruncateAfter(tb testing.TB, src any, opts ...Option) {
	tb.Helper()
	if src == nil {
		return
	}
	tb.Cleanup(func() {
		TruncateNow(tb, src, opts...)
	})
}

// TruncateNow empties every table reachable through src immediately and
// returns the run report. Failures call tb.Fatalf unless Quiet is set.
func TruncateNow(tb testing.TB, src any, opts ...Option) *truncate.Report {
	tb.Helper()
	if src == nil {
		return nil
	}

	o := options{
		resolver: connect.DefaultResolver{},
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	ctx := context.Background()
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	sess, err := o.resolver.Resolve(ctx, src)
	if err != nil {
		o.fail(tb, "tablewipe: resolve connection: %v", err)
		return nil
	}
	defer sess.Close()

	runOpts := []truncate.Option{
		truncate.WithLogger(o.log),
		truncate.WithOutput(tbWriter{tb}),
		truncate.Verbose(o.verbose),
	}
	report, err := truncate.Run(ctx, sess.Conn, sess.Metadata, runOpts...)
	if err != nil {
		o.fail(tb, "tablewipe: %v", err)
	}
	return report
}

func (o *options) fail(tb testing.TB, format string, args ...any) {
	tb.Helper()
	if o.quiet {
		tb.Logf(format, args...)
		return
	}
	tb.Fatalf(format, args...)
}

// tbWriter forwards verbose engine output to the test log.
type tbWriter struct {
	tb testing.TB
}

func (w tbWriter) Write(p []byte) (int, error) {
	w.tb.Helper()
	n := len(p)
	if n > 0 && p[n-1] == '\n' {
		p = p[:n-1]
	}
	w.tb.Log(string(p))
	return n, nil
}
