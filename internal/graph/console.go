package graph

import "log/slog"

// Console receives failures the engine recovers from locally: invocation
// failures and cycle reports. It is a side channel; nothing reported here
// is returned to the caller that triggered it.
type Console interface {
	Report(node string, err error)
}

// SlogConsole reports failures to a slog.Logger.
type SlogConsole struct {
	Logger *slog.Logger
}

// Report logs the failure at warn level.
func (c SlogConsole) Report(node string, err error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("node computation failed", "node", node, "error", err)
}

// ConsoleFunc adapts a function to the Console interface.
type ConsoleFunc func(node string, err error)

// Report calls f.
func (f ConsoleFunc) Report(node string, err error) {
	f(node, err)
}
