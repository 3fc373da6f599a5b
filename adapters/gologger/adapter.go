package gologger

import (
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-resources/core"
)

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

// Observer resolves the named logger and pairs it with recorder. A nil
// recorder discards metrics.
func Observer(name string, provider glog.LoggerProvider, logger glog.Logger, recorder core.MetricsRecorder) *core.Observer {
	_, resolved := Resolve(name, provider, logger)
	return core.NewObserver(resolved, recorder)
}

// Named returns a child logger for a component, falling back to the parent
// when no provider is available.
func Named(provider glog.LoggerProvider, parent glog.Logger, component string) glog.Logger {
	if provider != nil {
		if logger := provider.GetLogger(component); logger != nil {
			return logger
		}
	}
	return glog.Ensure(parent)
}
