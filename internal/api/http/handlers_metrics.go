package http

import (
	"errors"

	"github.com/GriffinCanCode/AppFeed/backend/internal/domain/apps"
	"github.com/GriffinCanCode/AppFeed/backend/internal/domain/profile"
	"github.com/GriffinCanCode/AppFeed/backend/internal/infrastructure/monitoring"
)

// Service names used as metric labels
const (
	serviceFeed      = "feed"
	serviceSocial    = "social"
	serviceProfile   = "profile"
	serviceSandbox   = "sandbox"
	serviceBundle    = "bundle"
	serviceGenerator = "generator"
)

// HandlerMetrics wraps handlers with metrics tracking
type HandlerMetrics struct {
	metrics *monitoring.Metrics
}

// NewHandlerMetrics creates a metrics wrapper. A nil collector disables tracking.
func NewHandlerMetrics(metrics *monitoring.Metrics) *HandlerMetrics {
	return &HandlerMetrics{metrics: metrics}
}

// Track starts timing an operation. Call the returned func with the
// operation's error; client errors are recorded as "rejected".
func (hm *HandlerMetrics) Track(service, operation string) func(err error) {
	timer := monitoring.NewTimer(hm.metrics, service, operation)
	return func(err error) {
		switch {
		case err == nil:
			timer.Stop("success")
		case isClientError(err):
			timer.Stop("rejected")
		default:
			timer.StopErr(err)
		}
	}
}

func isClientError(err error) bool {
	return isBadRequest(err) ||
		errors.Is(err, apps.ErrNotFound) ||
		errors.Is(err, apps.ErrUserNotFound) ||
		errors.Is(err, apps.ErrMissingFields) ||
		errors.Is(err, apps.ErrForbidden) ||
		errors.Is(err, profile.ErrNotFound)
}
