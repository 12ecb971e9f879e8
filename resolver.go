package listenpg

import (
	"github.com/anshmain/listen-pg-exchange/config"
	"github.com/anshmain/listen-pg-exchange/postgres"
)

// PolicyPrefix prefixes policy keys that override connection parameters,
// e.g. the "host" parameter is overridden by a "pgsql-listen-host"
// policy.
const PolicyPrefix = "pgsql-listen"

// ParamSource is the host's policy and environment lookup capability.
type ParamSource interface {
	// Policy returns the value of a policy applied to the exchange, if
	// any.
	Policy(vhost, exchange, key string) (Value, bool)

	// Env returns a process-wide configuration value registered under
	// key, if any.
	Env(key string) (Value, bool)
}

// BindingInfo is one binding as reported by the host's metadata source.
type BindingInfo struct {
	RoutingKey string
	Args       Arguments
}

// BindingSource is the host's live binding metadata capability. The
// translator queries it per notification instead of caching, so property
// derivation always reflects the current binding table.
type BindingSource interface {
	BindingsForScope(vhost, exchange string) []BindingInfo
}

// Resolver resolves a connection parameter for a scope. Precedence,
// first match wins: policy override, declared "x-" argument,
// process-wide value, supplied default.
type Resolver struct {
	params ParamSource
}

func NewResolver(params ParamSource) Resolver {
	return Resolver{params: params}
}

func (r Resolver) lookup(s *Scope, key string) (Value, bool) {
	if v, ok := r.params.Policy(s.VHost, s.Name, PolicyPrefix+"-"+key); ok && v.IsSet() {
		return v, true
	}
	if v, ok := s.Args["x-"+key]; ok && v.IsSet() {
		return v, true
	}
	if v, ok := r.params.Env(key); ok && v.IsSet() {
		return v, true
	}
	return Value{}, false
}

// Resolve returns the textual value for key, or def when no layer
// supplies one.
func (r Resolver) Resolve(s *Scope, key, def string) string {
	if v, ok := r.lookup(s, key); ok {
		if t, ok := v.Text(); ok {
			return t
		}
	}
	return def
}

// ResolvePort returns the port for the scope. A present but non-numeric
// value silently falls back to def; declarations are not rejected for
// malformed ports.
func (r Resolver) ResolvePort(s *Scope, def int) int {
	if v, ok := r.lookup(s, "port"); ok {
		if n, ok := v.Int64(); ok && n > 0 && n <= 65535 {
			return int(n)
		}
	}
	return def
}

// DSN derives the full connection descriptor for the scope, with the
// process config supplying the final-fallback layer.
func (r Resolver) DSN(s *Scope, defaults config.Postgres) postgres.DSN {
	return postgres.DSN{
		Host:     r.Resolve(s, "host", defaults.Host),
		Port:     r.ResolvePort(s, defaults.Port),
		User:     r.Resolve(s, "user", defaults.User),
		Password: r.Resolve(s, "password", defaults.Password),
		DBName:   r.Resolve(s, "dbname", defaults.DBName),
		SSLMode:  r.Resolve(s, "sslmode", defaults.SSLMode),
	}
}
