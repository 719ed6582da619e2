package logger

import (
	"slices"
	"sync"
)

// Component names used by the program's packages.
const (
	ComponentSource        = "source"
	ComponentDriver        = "driver"
	ComponentObservability = "observability"
)

// DefaultComponents are registered by RegisterDefaults when called without names.
var DefaultComponents = []string{ComponentSource, ComponentDriver, ComponentObservability}

var components = struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}{loggers: make(map[string]*Logger)}

// Register stores l under name, replacing any earlier logger of that name.
func Register(name string, l *Logger) {
	components.mu.Lock()
	defer components.mu.Unlock()
	components.loggers[name] = l
}

// Get returns the logger registered under name. Unregistered names get the
// global logger tagged with the component.
func Get(name string) *Logger {
	components.mu.RLock()
	l, ok := components.loggers[name]
	components.mu.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}

// RegisterDefaults derives a component logger for each name from the
// current global logger, or for DefaultComponents when names is empty.
// Call it after SetGlobalLogger so the components inherit its level and sink.
func RegisterDefaults(names ...string) {
	if len(names) == 0 {
		names = DefaultComponents
	}
	global := GetGlobalLogger()
	components.mu.Lock()
	defer components.mu.Unlock()
	for _, name := range names {
		components.loggers[name] = global.WithComponent(name)
	}
}

// Registered lists the registered component names in sorted order.
func Registered() []string {
	components.mu.RLock()
	defer components.mu.RUnlock()
	names := make([]string, 0, len(components.loggers))
	for name := range components.loggers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
