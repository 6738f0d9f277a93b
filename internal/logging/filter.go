package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// levelRules maps the "module" field of an event to its minimum level.
// Events from modules without a rule use fallback.
type levelRules struct {
	fallback zerolog.Level
	modules  map[string]zerolog.Level
}

// parseLevelRules reads "info" or "warn;keysig=debug;grpcnode=trace".
// A rule without a module name, or with "*", sets the fallback.
func parseLevelRules(s string) (levelRules, error) {
	rules := levelRules{fallback: zerolog.InfoLevel, modules: map[string]zerolog.Level{}}
	for _, rule := range strings.Split(s, ";") {
		rule = strings.TrimSpace(rule)
		if rule == "" {
			continue
		}
		module, name, scoped := strings.Cut(rule, "=")
		if !scoped {
			module, name = "*", rule
		}
		level, err := zerolog.ParseLevel(strings.TrimSpace(name))
		if err != nil {
			return levelRules{}, fmt.Errorf("log level rule %q: %w", rule, err)
		}
		module = strings.TrimSpace(module)
		if module == "*" {
			rules.fallback = level
			continue
		}
		if module == "" {
			return levelRules{}, fmt.Errorf("log level rule %q has no module", rule)
		}
		rules.modules[module] = level
	}
	return rules, nil
}

// floor is the lowest level any rule lets through; the logger itself must
// be set to it so the writer sees those events at all.
func (r levelRules) floor() zerolog.Level {
	lowest := r.fallback
	for _, l := range r.modules {
		if l < lowest {
			lowest = l
		}
	}
	return lowest
}

func (r levelRules) allows(module string, level zerolog.Level) bool {
	want, ok := r.modules[module]
	if !ok {
		want = r.fallback
	}
	return level >= want
}

// moduleFilter sits between zerolog and the real output and drops events
// below their module's level. It sees the JSON event before any console
// formatting.
type moduleFilter struct {
	out   io.Writer
	rules levelRules
}

var _ zerolog.LevelWriter = moduleFilter{}

func (w moduleFilter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.NoLevel, p)
}

func (w moduleFilter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	var evt struct {
		Module string `json:"module"`
		Level  string `json:"level"`
	}
	if err := json.Unmarshal(p, &evt); err != nil {
		return 0, fmt.Errorf("log event is not JSON: %w", err)
	}
	if level == zerolog.NoLevel && evt.Level != "" {
		if l, err := zerolog.ParseLevel(evt.Level); err == nil {
			level = l
		}
	}
	if !w.rules.allows(evt.Module, level) {
		return len(p), nil
	}
	return w.out.Write(p)
}
