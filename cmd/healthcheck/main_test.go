package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/simplesurance/mergeq/internal/cfg"
)

func TestHealthURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:8080/healthz", healthURL(func(string) (string, bool) { return "", false }))

	assert.Equal(t, "http://127.0.0.1:9000/healthz", healthURL(func(key string) (string, bool) {
		if key == cfg.EnvListenPort {
			return "9000", true
		}
		return "", false
	}))
}

func TestCheck(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(healthy.Close)

	unhealthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(unhealthy.Close)

	assert.Equal(t, 0, check(healthy.URL))
	assert.Equal(t, 1, check(unhealthy.URL))
	assert.Equal(t, 1, check("http://127.0.0.1:1/healthz"))
}
