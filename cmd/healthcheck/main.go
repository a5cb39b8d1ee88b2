// healthcheck exits with code 0 if the health endpoint of a mergeq process
// listening on localhost responds with 200 OK, otherwise it exits with 1.
// It is intended to be used as container HEALTHCHECK command.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/simplesurance/mergeq/internal/cfg"
)

const timeout = 2 * time.Second

func main() {
	os.Exit(check(healthURL(os.LookupEnv)))
}

func healthURL(lookupEnv cfg.LookupEnvFunc) string {
	port := cfg.DefListenPort

	if v, ok := lookupEnv(cfg.EnvListenPort); ok {
		if p, err := strconv.Atoi(v); err == nil {
			port = p
		}
	}

	return fmt.Sprintf("http://127.0.0.1:%d%s", port, cfg.HealthEndpoint)
}

func check(url string) int {
	client := &http.Client{Timeout: timeout}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 1
	}

	resp, err := client.Do(req)
	if err != nil {
		return 1
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 1
	}

	return 0
}
