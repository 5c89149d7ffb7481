// Package httpserver runs the HTTP surface with configurable timeouts and
// graceful shutdown, and provides liveness and readiness handlers.
//
// Run binds the listener, serves until the context is cancelled and then
// shuts down within ShutdownTimeout. Signal handling is left to the caller,
// which usually derives the context from signal.NotifyContext and runs the
// server inside an errgroup next to other background work.
//
//	srv := httpserver.New(cfg, router, httpserver.WithLogger(log))
//	g.Go(func() error { return srv.Run(ctx) })
//
// Run wraps listen errors with ErrStart and shutdown errors with ErrShutdown.
package httpserver
