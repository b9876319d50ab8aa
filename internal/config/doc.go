// Package config loads host configuration.
//
// Values come, in increasing precedence, from built-in defaults, an optional
// .env file, SCRIBBLE_-prefixed environment variables, and finally command
// flags applied by the caller:
//
//	SCRIBBLE_ADDRESS=0.0.0.0:5000
//	SCRIBBLE_TICK_RATE=90
//	SCRIBBLE_FANOUT=true
//	SCRIBBLE_FANOUT_LIMIT=8
//	SCRIBBLE_MAX_SESSIONS=0
//	SCRIBBLE_LOG_LEVEL=info
//	SCRIBBLE_LOG_FORMAT=text
//	SCRIBBLE_MDNS=false
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    errors.PrintError(err)
//	    os.Exit(1)
//	}
//	fmt.Println("Listening on", cfg.Address)
package config
