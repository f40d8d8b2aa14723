// Package rowship provides an embeddable row migrator.
//
// Rowship reads new rows from local database tables and creates them, one at
// a time and in primary key order, as records of a remote GIS web service.
// Progress is tracked per table as a watermark in a state file, so every run
// only sends rows added since the last confirmed one.
//
// # Basic Usage
//
//	cfg := rowship.Config{
//	    ServiceURL: "https://gis.example.com/api",
//	    Username:   "migrator",
//	    Password:   os.Getenv("ROWSHIP_PASSWORD"),
//	    Driver:     "mysql",
//	    DSN:        "root:pw@tcp(localhost:3306)/elf",
//	    StateDir:   "/var/lib/rowship",
//	}
//
//	s, err := rowship.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tables, err := rowship.LoadCatalog("tables.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report, err := s.Run(ctx, tables)
//
// # Failure Handling
//
// The first failed row ends the pass. Everything confirmed before it is kept
// in the state file, and the next pass resumes from the failed row. Errors
// wrap the sentinels re-exported here ([ErrAuth], [ErrTransport],
// [ErrProtocol], [ErrRowRejected], [ErrBadKey]); test them with errors.Is.
//
// # Dependency Injection
//
// For testing, you can inject custom implementations of external dependencies:
//
//	s, err := rowship.New(cfg,
//	    rowship.WithHTTPClient(mockClient),
//	    rowship.WithRowSource(fakeSource),
//	    rowship.WithLogger(customLogger),
//	)
package rowship
