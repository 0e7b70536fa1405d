// Package log provides a logging abstraction for embedredis components.
//
// This package defines a Logger interface that can be implemented by
// any logging library. A zerolog implementation is provided. Libraries
// built on embedredis log nothing unless a Logger is passed in.
//
// # Usage
//
// Use the provided zerolog adapter:
//
//	logger := log.NewZerologAdapter()
//
// Or wrap an existing zerolog.Logger, for example one writing to a test's output:
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(zerolog.NewTestWriter(t)))
//
// # Custom Loggers
//
// Implement the Logger interface to integrate with your existing
// logging infrastructure:
//
//	type MyLogger struct { ... }
//
//	func (l *MyLogger) Debug(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Info(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Warn(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Error(msg string, fields ...log.Field) { ... }
package log
