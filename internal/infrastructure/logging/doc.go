// Package logging is the structured logger shared by every rfsocket
// component: log/slog with service and version attributes on each entry,
// JSON or text output, and lumberjack rotation when writing to a file.
//
//	logging:
//	  level: info        # debug, info, warn, error
//	  format: json       # json, text
//	  output: file       # stdout, stderr, file
//	  file:
//	    path: ./logs/rfsocket.log
//	    max_size: 10     # MB
//	    max_backups: 5
//	    max_age: 30      # days
//	    compress: true
//
// Secrets, tokens and password hashes are never logged. The generated
// first-boot admin password is the one exception, logged once.
package logging
