package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/valyala/fasthttp"
)

// Small liveness probe for container healthchecks: hits the daemon's
// admin /healthz endpoint and exits non-zero when it is unreachable or
// unhealthy.
func main() {
	addr := flag.String("addr", "http://localhost:8080", "base URL of the squashd admin server")
	timeout := flag.Duration("timeout", 3*time.Second, "request timeout")
	flag.Parse()

	c := &fasthttp.Client{
		Name:         "squashd-health",
		ReadTimeout:  *timeout,
		WriteTimeout: *timeout,
	}

	status, body, err := c.GetTimeout(nil, *addr+"/healthz", *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "health probe failed: %v\n", err)
		os.Exit(1)
	}
	if status != fasthttp.StatusOK {
		fmt.Fprintf(os.Stderr, "unhealthy: status=%d body=%s\n", status, body)
		os.Exit(1)
	}
	fmt.Printf("%s\n", body)
}
