package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

// Example_customRegistry demonstrates using an isolated Prometheus registry.
func Example_customRegistry() {
	customRegistry := prometheus.NewRegistry()

	config := Config{
		Enabled:  true,
		Registry: customRegistry,
	}

	registry := config.Resolve()
	registry.WorkloadsStarted.WithLabelValues("render").Add(3)
	registry.WorkloadsCompleted.WithLabelValues("render").Add(2)

	fmt.Println(promtest.ToFloat64(registry.WorkloadsStarted.WithLabelValues("render")))
	fmt.Println(promtest.ToFloat64(registry.WorkloadsCompleted.WithLabelValues("render")))

	// Output:
	// 3
	// 2
}
