// Package logging provides the leveled loggers used across the module.
//
// Loggers are obtained through dragonboats logger package, so every package
// simply declares
//
//	var log = logger.GetLogger(logging.Store)
//
// and Init decides, once at startup, how and at which level they write.
// Lines look like
//
//	2025/01/02 15:04:05 WARN  | store           | [durable] set "model/count" failed: ...
package logging
