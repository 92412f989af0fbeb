package routing

import (
	"fmt"

	"github.com/vietddude/forecaster/internal/core/domain"
)

// Shared-store key prefixes. Assignments are scoped globally or per caller;
// failure marks, health records, and metric counters are scoped per
// provider name.
const (
	routingKeyPrefix = "routing"
	failedKeyPrefix  = "api:failed"
	healthKeyPrefix  = "api:health"
	metricsKeyPrefix = "api:metrics"
)

func assignmentKey(scope domain.RouteScope, callerID string) string {
	if scope == domain.ScopePerCaller {
		if callerID == "" {
			callerID = "anonymous"
		}
		return fmt.Sprintf("%s:caller:%s", routingKeyPrefix, callerID)
	}
	return routingKeyPrefix + ":global"
}

func assignmentPattern() string {
	return routingKeyPrefix + ":*"
}

func failedKey(provider string) string {
	return fmt.Sprintf("%s:%s", failedKeyPrefix, provider)
}

func healthKey(provider string) string {
	return fmt.Sprintf("%s:%s", healthKeyPrefix, provider)
}

func metricKey(provider, kind string) string {
	return fmt.Sprintf("%s:%s:%s", metricsKeyPrefix, provider, kind)
}
