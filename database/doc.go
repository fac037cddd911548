// Package database wraps GORM with connection retry, pool configuration,
// error translation and a lifecycle component.
//
// The driver is chosen by configuration:
//
//	database:
//	  driver: sqlite        # or postgres
//	  dsn: asthma.db
//	  auto_migrate: true
//
// Register the component before anything that queries it:
//
//	db := database.NewComponent(cfg.Database, log).WithAutoMigrate(&user.User{})
//	registry.Register(db)
package database
