// Package bootstrap runs the service lifecycle: it validates the typed
// configuration, initializes the global logger, starts registered
// components in order, runs configure callbacks and hooks, and shuts
// everything down in reverse on SIGINT or SIGTERM.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(db)
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*Config]) error {
//	    return a.RegisterComponent(server)
//	})
//	err = app.Run(ctx)
//
// RunTask gives one-shot commands, such as seeding a user, the same
// startup and shutdown without blocking on a signal.
package bootstrap
