package biz

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/go-kratos/kratos/v2/errors"
)

const (
	reasonConfiguration      = "CONFIGURATION_ERROR"
	reasonInvalidTransition  = "INVALID_STATE_TRANSITION"
	reasonConnectorNotFound  = "CONNECTOR_NOT_FOUND"
	reasonDuplicateConnector = "DUPLICATE_CONNECTOR"
	reasonProgressNotFound   = "PROGRESS_NOT_FOUND"
)

// ErrCancelled marks an attempt abandoned because its run was paused or stopped.
// errors.Is(ErrCancelled, context.Canceled) holds.
var ErrCancelled = fmt.Errorf("attempt cancelled: %w", context.Canceled)

// NewConfigurationError reports missing or malformed run parameters.
func NewConfigurationError(problems ...string) error {
	return errors.New(400, reasonConfiguration, "invalid run configuration: "+strings.Join(problems, ", "))
}

// IsConfigurationError reports whether err is a configuration error.
func IsConfigurationError(err error) bool {
	return errors.Reason(err) == reasonConfiguration
}

func newInvalidTransitionError(action string, from State) error {
	return errors.New(409, reasonInvalidTransition, fmt.Sprintf("cannot %s a simulation that is %s", action, from))
}

func newRefreshRejectedError(state State) error {
	return errors.New(409, reasonInvalidTransition, fmt.Sprintf("cannot refresh connectors while the simulation is %s", state))
}

// IsInvalidTransition reports whether err is a rejected state transition.
func IsInvalidTransition(err error) bool {
	return errors.Reason(err) == reasonInvalidTransition
}

func newConnectorNotFoundError(id string) error {
	return errors.NotFound(reasonConnectorNotFound, fmt.Sprintf("connector %q is not registered", id))
}

// IsConnectorNotFound reports whether err is an unknown connector lookup.
func IsConnectorNotFound(err error) bool {
	return errors.Reason(err) == reasonConnectorNotFound
}

// NewProgressNotFoundError reports that no progress snapshot is cached for a run.
func NewProgressNotFoundError(runID string) error {
	return errors.NotFound(reasonProgressNotFound, fmt.Sprintf("no progress cached for run %q", runID))
}

// IsProgressNotFound reports whether err is a missing progress snapshot.
func IsProgressNotFound(err error) bool {
	return errors.Reason(err) == reasonProgressNotFound
}

func newDuplicateConnectorError(id string) error {
	return errors.BadRequest(reasonDuplicateConnector, fmt.Sprintf("connector id %q is not unique", id))
}

func isCancelled(err error) bool {
	return stderrors.Is(err, context.Canceled)
}
