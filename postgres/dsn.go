package postgres

import (
	"net"
	"strconv"
	"strings"
)

// DSN is a resolved connection descriptor. It is derived per exchange from
// the parameter precedence chain and discarded after the connection is
// established.
type DSN struct {
	Host     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Port     int
}

// String renders the DSN in libpq key=value form.
func (d DSN) String() string {
	var b strings.Builder
	writeParam(&b, "host", d.Host)
	writeParam(&b, "port", strconv.Itoa(d.Port))
	writeParam(&b, "user", d.User)
	writeParam(&b, "password", d.Password)
	writeParam(&b, "dbname", d.DBName)
	writeParam(&b, "sslmode", d.SSLMode)
	return strings.TrimSpace(b.String())
}

// Server returns the host:port pair, cached on connect for message headers.
func (d DSN) Server() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

func writeParam(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	b.WriteString(key)
	b.WriteByte('=')
	if strings.ContainsAny(value, " '\\") {
		b.WriteByte('\'')
		v := strings.ReplaceAll(value, `\`, `\\`)
		v = strings.ReplaceAll(v, `'`, `\'`)
		b.WriteString(v)
		b.WriteByte('\'')
	} else {
		b.WriteString(value)
	}
	b.WriteByte(' ')
}
