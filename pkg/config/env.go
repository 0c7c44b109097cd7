package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Environment performs typed environment-variable lookups and remembers every
// variable it was asked about, so help output can list them with their
// current values.
type Environment struct {
	lookup LookupFunc

	mu      sync.Mutex
	entries map[string]envEntry
}

type envEntry struct {
	kind  string
	value string
	set   bool
}

// NewEnvironment returns an Environment reading through lookup.
func NewEnvironment(lookup LookupFunc) *Environment {
	return &Environment{
		lookup:  lookup,
		entries: map[string]envEntry{},
	}
}

// String returns the value of key and whether it is set.
func (e *Environment) String(key string) (string, bool) {
	v, ok := e.lookup(key)
	e.record(key, "string", v, ok)
	return v, ok
}

// Bool accepts true/1 and false/0 (case-insensitive). Any other value is
// reported as unset.
func (e *Environment) Bool(key string) (bool, bool) {
	v, ok := e.lookup(key)
	e.record(key, "bool", v, ok)
	if !ok {
		return false, false
	}
	switch strings.ToLower(v) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}
	return false, false
}

// Int returns the integer value of key. Unparseable values are reported as unset.
func (e *Environment) Int(key string) (int, bool) {
	v, ok := e.lookup(key)
	e.record(key, "int", v, ok)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Duration returns the time.Duration value of key ("30s", "2m").
// Unparseable values are reported as unset.
func (e *Environment) Duration(key string) (time.Duration, bool) {
	v, ok := e.lookup(key)
	e.record(key, "duration", v, ok)
	if !ok {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}

func (e *Environment) record(key, kind, value string, set bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries[key] = envEntry{kind: kind, value: value, set: set}
}

// Usage renders the looked-up variables for a help epilog:
//
//	ENVIRONMENT VARIABLES:
//	  KODMAN_DEBUG  bool  (current: true)
func (e *Environment) Usage() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.entries) == 0 {
		return ""
	}

	keys := make([]string, 0, len(e.entries))
	for k := range e.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("ENVIRONMENT VARIABLES:\n")
	for _, k := range keys {
		ent := e.entries[k]
		fmt.Fprintf(&b, "  %s  %s", k, ent.kind)
		if ent.set && ent.value != "" {
			fmt.Fprintf(&b, "  (current: %s)", ent.value)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
