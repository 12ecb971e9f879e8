package listenpg_test

import (
	"testing"

	listenpg "github.com/anshmain/listen-pg-exchange"
	"github.com/anshmain/listen-pg-exchange/config"
	"github.com/stretchr/testify/assert"
)

type fakeParams struct {
	policies map[string]listenpg.Value
	env      map[string]listenpg.Value
}

func (f *fakeParams) Policy(_, _, key string) (listenpg.Value, bool) {
	v, ok := f.policies[key]
	return v, ok
}

func (f *fakeParams) Env(key string) (listenpg.Value, bool) {
	v, ok := f.env[key]
	return v, ok
}

func TestResolve_Precedence(t *testing.T) {
	t.Parallel()

	params := &fakeParams{
		policies: map[string]listenpg.Value{
			"pgsql-listen-host": listenpg.StringValue("policyHost"),
		},
		env: map[string]listenpg.Value{
			"host": listenpg.StringValue("envHost"),
		},
	}
	scope := &listenpg.Scope{
		Name:  "orders",
		VHost: "vhost1",
		Args:  listenpg.Arguments{"x-host": listenpg.StringValue("argHost")},
	}
	r := listenpg.NewResolver(params)

	assert.Equal(t, "policyHost", r.Resolve(scope, "host", "defaultHost"))

	delete(params.policies, "pgsql-listen-host")
	assert.Equal(t, "argHost", r.Resolve(scope, "host", "defaultHost"))

	delete(scope.Args, "x-host")
	assert.Equal(t, "envHost", r.Resolve(scope, "host", "defaultHost"))

	delete(params.env, "host")
	assert.Equal(t, "defaultHost", r.Resolve(scope, "host", "defaultHost"))
}

func TestResolvePort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		arg  listenpg.Value
		want int
	}{
		{name: "integer", arg: listenpg.IntValue(5433), want: 5433},
		{name: "numeric text", arg: listenpg.StringValue("5433"), want: 5433},
		{name: "binary form", arg: listenpg.NormalizeValue([]byte("5433")), want: 5433},
		{name: "non-numeric falls back", arg: listenpg.StringValue("not-a-port"), want: 5432},
		{name: "out of range falls back", arg: listenpg.IntValue(99999), want: 5432},
		{name: "unset falls back", arg: listenpg.NormalizeValue(true), want: 5432},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			scope := &listenpg.Scope{
				Name:  "orders",
				VHost: "vhost1",
				Args:  listenpg.Arguments{"x-port": tt.arg},
			}
			r := listenpg.NewResolver(&fakeParams{})
			assert.Equal(t, tt.want, r.ResolvePort(scope, 5432))
		})
	}
}

func TestResolverDSN_ConfigIsFinalLayer(t *testing.T) {
	t.Parallel()

	defaults := config.Postgres{
		Host:    "127.0.0.1",
		Port:    5432,
		User:    "postgres",
		DBName:  "postgres",
		SSLMode: "disable",
	}
	scope := &listenpg.Scope{
		Name:  "orders",
		VHost: "vhost1",
		Args: listenpg.Arguments{
			"x-host":   listenpg.StringValue("db.internal"),
			"x-dbname": listenpg.StringValue("events"),
		},
	}
	r := listenpg.NewResolver(&fakeParams{})

	dsn := r.DSN(scope, defaults)
	assert.Equal(t, "db.internal", dsn.Host)
	assert.Equal(t, 5432, dsn.Port)
	assert.Equal(t, "postgres", dsn.User)
	assert.Equal(t, "events", dsn.DBName)
	assert.Equal(t, "disable", dsn.SSLMode)
}
