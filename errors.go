/*
Copyright © 2024 the Plume authors.
This file is part of Plume.

Plume is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Plume is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Plume.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package plume implements the Lagrangian particle-transport engine:
// release scheduling, particle storage, advective-diffusive
// integration, species-specific decay/settling, concentration
// accounting, and the run/control-interface loop that ties them
// together against the daily gridded fields in package grid.
package plume

import (
	"errors"
	"fmt"

	"github.com/oceantracer/plume/grid"
)

// Error taxonomy, per spec.md section 7. ConfigurationError,
// DataUnavailable, and CorruptBinary halt a run; LookupMiss and
// StuckOnLand are recovered locally and never propagate out of a
// step -- they surface only as the gauge counters on Snapshot.
var (
	// ErrConfiguration covers a bad release phase, an unknown tracer,
	// or a non-ascending date range. The run does not start.
	ErrConfiguration = errors.New("plume: invalid configuration")

	// ErrCancelled is returned by a prerender or step loop that
	// observed a cancellation request between steps.
	ErrCancelled = errors.New("plume: run cancelled")
)

// ConfigurationError reports a rejected configuration value.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("plume: invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

func configurationErrorf(field, format string, args ...interface{}) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func isConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce) || errors.Is(err, ErrConfiguration)
}

// isDataUnavailable recognizes the grid package's DataUnavailable
// sentinel wherever it surfaces in a wrapped error chain -- a day
// file or metadata file missing while configuring or mid-run.
func isDataUnavailable(err error) bool {
	return errors.Is(err, grid.ErrDataUnavailable)
}

// isCorruptBinary recognizes the grid package's CorruptBinary and
// UnsupportedFormat sentinels.
func isCorruptBinary(err error) bool {
	return errors.Is(err, grid.ErrCorruptBinary) || errors.Is(err, grid.ErrUnsupportedFormat)
}

// ExitCode maps an error returned from a batch run to the process
// exit codes in spec.md section 6: 0 success, 2 invalid
// configuration, 3 data unavailable, 4 corrupt binary, 5 cancelled.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case isConfigurationError(err):
		return 2
	case isDataUnavailable(err):
		return 3
	case isCorruptBinary(err):
		return 4
	case errors.Is(err, ErrCancelled):
		return 5
	default:
		return 1
	}
}
