// Package raven is an embedded crash and error reporting client for Sentry
// collectors.
//
// raven captures explicit error reports and unrecovered panics, turns them
// into Sentry event records and posts them to the collector's store endpoint.
// A panicking goroutine may take the process down before any network I/O can
// finish, so crashes are written synchronously to a crash directory and
// replayed the next time a Client is constructed.
//
// # Core Components
//
//   - Event / EventBuilder: the wire record and its chained accumulator
//   - Failure: a persistable error chain with raw call frames
//   - HandlerChain / CrashInterceptor: ordered panic handlers, always re-panicking
//   - CrashStore: the on-disk crash queue (persist now, replay at next start)
//   - Transport / Deliverer: the delivery boundary (transports/* for plugins)
//
// # Quick Start
//
//	client, err := raven.New(os.Getenv("SENTRY_DSN"),
//	    raven.WithLogger(slog.Default()),
//	    raven.WithTags(map[string]string{"service": "billing"}),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//	defer raven.DefaultHandlerChain().Recover()
//
//	client.CaptureMessage(ctx, "billing worker started")
//	client.CaptureError(ctx, raven.WithStack(err))
//
// # Design Principles
//
//   - Capturing never disturbs the caller: delivery outcomes are only logged
//   - The crash path never swallows the panic: handlers run, then the value is re-panicked
//   - Replayed crashes get exactly one delivery attempt; files are deleted afterwards
package raven
