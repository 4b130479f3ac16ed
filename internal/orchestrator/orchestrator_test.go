package orchestrator

import (
	"context"
	"net"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestRunShutsDownOnCancelAndRunsCleanupsInReverse(t *testing.T) {
	server := &http.Server{Addr: freeAddr(t), Handler: http.NotFoundHandler()}
	sm := NewServiceManager(server, time.Second)

	var order []string
	sm.OnShutdown("first", func() error { order = append(order, "first"); return nil })
	sm.OnShutdown("second", func() error { order = append(order, "second"); return nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sm.Run(ctx) }()

	assert.Eventually(t, func() bool {
		resp, err := http.Get("http://" + server.Addr + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusNotFound
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestRunReportsListenFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	cleaned := false
	sm := NewServiceManager(&http.Server{Addr: l.Addr().String()}, time.Second)
	sm.OnShutdown("db", func() error { cleaned = true; return nil })

	err = sm.Run(context.Background())

	assert.Error(t, err)
	assert.True(t, cleaned)
}

func TestSignalHandlerCancelsContext(t *testing.T) {
	sh := NewSignalHandler(syscall.SIGUSR1)
	defer sh.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sh.HandleSignals(ctx, cancel)

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled by signal")
	}
}
