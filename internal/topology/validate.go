// internal/topology/validate.go
package topology

import (
	"fmt"

	"github.com/tamzrod/caparoc/internal/fault"
	"github.com/tamzrod/caparoc/internal/register"
)

// ValidateModule checks 1 <= module <= min(ModuleCount(), MaxModules).
// Modules outside the hard limit are rejected without I/O.
// Topology read failures are returned as-is (not as validation errors).
func ValidateModule(p Provider, module int) error {
	if module < 1 || module > register.MaxModules {
		return &fault.ValidationError{Field: "module", Value: module, Min: 1, Max: register.MaxModules}
	}
	n, err := p.ModuleCount()
	if err != nil {
		return fmt.Errorf("topology: read module count: %w", err)
	}
	n = min(n, register.MaxModules)
	if module > n {
		return &fault.ValidationError{Field: "module", Value: module, Min: 1, Max: n}
	}
	return nil
}

// ValidateChannel validates module, then 1 <= channel <= min(ChannelCount(module), MaxChannels).
// A count above the hard limit never widens the accepted range: channel 5
// would address channel 1 of the next module.
func ValidateChannel(p Provider, module, channel int) error {
	if channel < 1 || channel > register.MaxChannels {
		return &fault.ValidationError{
			Field:  "channel",
			Value:  channel,
			Min:    1,
			Max:    register.MaxChannels,
			Reason: fmt.Sprintf("expected value between 1 and %d for module %d", register.MaxChannels, module),
		}
	}
	if err := ValidateModule(p, module); err != nil {
		return err
	}
	n, err := p.ChannelCount(module)
	if err != nil {
		return fmt.Errorf("topology: read channel count of module %d: %w", module, err)
	}
	n = min(n, register.MaxChannels)
	if channel > n {
		return &fault.ValidationError{
			Field:  "channel",
			Value:  channel,
			Min:    1,
			Max:    n,
			Reason: fmt.Sprintf("expected value between 1 and %d for module %d", n, module),
		}
	}
	return nil
}
