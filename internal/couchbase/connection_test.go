package couchbase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionString(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{name: "Couchbase scheme kept", url: "couchbase://db", expected: "couchbase://db"},
		{name: "TLS scheme kept", url: "couchbases://db.cloud", expected: "couchbases://db.cloud"},
		{name: "HTTP rewritten", url: "http://db:8091", expected: "couchbase://db:8091"},
		{name: "Bare host", url: "db", expected: "couchbase://db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ConnectionString(tt.url))
		})
	}
}
