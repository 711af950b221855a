// Package profiling wires optional Pyroscope continuous profiling.
package profiling

import (
	"fmt"
	"os"
	"runtime"

	"github.com/grafana/pyroscope-go"
)

// Profiler holds the running Pyroscope instance.
type Profiler struct {
	profiler *pyroscope.Profiler
}

// Start initializes Pyroscope continuous profiling if enabled.
// Configuration comes from environment variables:
// - ENABLE_CONTINUOUS_PROFILING: set to "true" to enable (default: false)
// - PYROSCOPE_SERVER_URL: Pyroscope server address (default: http://pyroscope:4040)
// - PYROSCOPE_ENVIRONMENT: environment tag (default: development)
//
// Returns nil if continuous profiling is disabled.
func Start(serviceName string) (*Profiler, error) {
	if os.Getenv("ENABLE_CONTINUOUS_PROFILING") != "true" {
		return nil, nil
	}

	serverURL := os.Getenv("PYROSCOPE_SERVER_URL")
	if serverURL == "" {
		serverURL = "http://pyroscope:4040"
	}

	environment := os.Getenv("PYROSCOPE_ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	config := pyroscope.Config{
		ApplicationName: serviceName,
		ServerAddress:   serverURL,

		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},

		Tags: map[string]string{
			"environment": environment,
			"hostname":    getHostname(),
			"go_version":  runtime.Version(),
		},
	}

	profiler, err := pyroscope.Start(config)
	if err != nil {
		return nil, fmt.Errorf("start pyroscope profiler: %w", err)
	}

	return &Profiler{profiler: profiler}, nil
}

// Stop gracefully stops the profiler.
func (p *Profiler) Stop() error {
	if p == nil || p.profiler == nil {
		return nil
	}
	return p.profiler.Stop()
}

// getHostname returns the container hostname or "unknown"
func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}
