// Package scriptregistry loads the queue's atomic command scripts into
// Redis's script cache and runs them by SHA, following the scriptLoader
// pattern of pre-loading once via SCRIPT LOAD and executing by EVALSHA
// afterward to avoid re-sending and re-parsing the Lua source on every
// call.
package scriptregistry

import (
	"context"
	"fmt"
	"strings"

	"github.com/muaviaUsmani/bullmq-core-go/internal/errors"
	"github.com/muaviaUsmani/bullmq-core-go/internal/scripts"
	"github.com/redis/go-redis/v9"
)

// Registry holds one *redis.Script per catalog command, keyed by command
// name. redis.Script.Run already retries EVALSHA-then-EVAL transparently
// on NOSCRIPT, so Registry's job is bookkeeping: eager loading at startup,
// NumKeys validation, and translating load failures into ScriptLoadError.
type Registry struct {
	client  redis.Scripter
	scripts map[string]*redis.Script
	numKeys map[string]int
}

// New builds a Registry from the embedded script catalog. It does not
// touch the network; call LoadAll once a connection is available.
func New(client redis.Scripter) *Registry {
	r := &Registry{
		client:  client,
		scripts: make(map[string]*redis.Script, len(scripts.Catalog)),
		numKeys: make(map[string]int, len(scripts.Catalog)),
	}
	for name, cmd := range scripts.Catalog {
		r.scripts[name] = redis.NewScript(cmd.Body)
		r.numKeys[name] = cmd.NumKeys
	}
	return r
}

// LoadAll pre-loads every catalog command into Redis's script cache via
// SCRIPT LOAD, so the first real invocation of each command is a plain
// EVALSHA instead of paying to ship and parse the source.
func (r *Registry) LoadAll(ctx context.Context) error {
	for name, script := range r.scripts {
		sha, err := script.Load(ctx, r.client).Result()
		if err != nil {
			return &errors.ScriptLoadError{SHA: sha, Err: fmt.Errorf("load %q: %w", name, err)}
		}
	}
	return nil
}

// Eval runs the named command with the given keys and arguments. For
// commands with a fixed key count (NumKeys >= 0), the caller's key slice
// length is validated before the round trip. Returns a ScriptLoadError if
// the script could not be (re)loaded after a NOSCRIPT miss.
func (r *Registry) Eval(ctx context.Context, name string, keys []string, args ...interface{}) (interface{}, error) {
	script, ok := r.scripts[name]
	if !ok {
		return nil, fmt.Errorf("scriptregistry: unknown command %q", name)
	}
	if want := r.numKeys[name]; want >= 0 && len(keys) != want {
		return nil, fmt.Errorf("scriptregistry: %q expects %d keys, got %d", name, want, len(keys))
	}

	result, err := script.Run(ctx, r.client, keys, args...).Result()
	if err != nil {
		if strings.Contains(err.Error(), "NOSCRIPT") {
			return nil, &errors.ScriptLoadError{SHA: script.Hash(), Err: fmt.Errorf("eval %q: %w", name, err)}
		}
		return nil, fmt.Errorf("scriptregistry: eval %q: %w", name, err)
	}
	return result, nil
}

// SHA returns the loaded hash of a catalog command, mainly for logging and
// tests that want to assert the registry is wired to the expected source.
func (r *Registry) SHA(name string) (string, bool) {
	script, ok := r.scripts[name]
	if !ok {
		return "", false
	}
	return script.Hash(), true
}
