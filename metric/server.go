package metric

import (
	"fmt"

	semmetric "github.com/c360studio/semstreams/metric"
	"github.com/c360studio/semstreams/pkg/errs"
	"github.com/c360studio/semstreams/pkg/security"
)

// NewServer returns the platform metrics server for reg on port and path.
// Port 0 and an empty path fall back to 9090 and "/metrics".
func NewServer(port int, path string, reg *Registry, sec security.Config) (*semmetric.Server, error) {
	if reg == nil {
		return nil, errs.WrapFatal(fmt.Errorf("nil registry"), "metric", "NewServer", "metrics registry not provided")
	}
	if port < 0 || port > 65535 {
		return nil, errs.WrapInvalid(fmt.Errorf("port %d out of range", port), "metric", "NewServer", "check port")
	}
	return semmetric.NewServer(port, path, reg.MetricsRegistry, sec), nil
}
