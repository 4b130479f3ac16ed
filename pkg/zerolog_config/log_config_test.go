package zerolog_config

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{in: "debug", want: zerolog.DebugLevel},
		{in: " WARN ", want: zerolog.WarnLevel},
		{in: "", want: zerolog.InfoLevel},
		{in: "verbose", want: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestElasticsearchWriterPostsDocument(t *testing.T) {
	var gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	ew := ElasticsearchWriter{URL: srv.URL + "/logs"}
	n, err := ew.Write([]byte(`{"message":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	assert.Equal(t, "/logs/_doc", gotPath)
	assert.JSONEq(t, `{"message":"hi"}`, string(gotBody))
}

func TestElasticsearchWriterReportsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := ElasticsearchWriter{URL: srv.URL}.Write([]byte(`{}`))
	assert.Error(t, err)
}

func TestConsoleOnlyLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "", "logs")
	logger.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
}

func TestStartupRequiresIndex(t *testing.T) {
	assert.Error(t, StartupWithEnv("", "", "info"))
}
