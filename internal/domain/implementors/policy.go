package implementors

import (
	"fmt"
	"slices"
)

// DuplicatePolicy decides how a second registration for an already buffered
// module is handled.
type DuplicatePolicy int

const (
	// PolicyOverwrite replaces the buffered records; last write wins.
	PolicyOverwrite DuplicatePolicy = iota
	// PolicyReject refuses a differing second registration with ErrDuplicateModule.
	// An identical one is accepted as a no-op.
	PolicyReject
	// PolicyMergeAppend appends records not already present.
	PolicyMergeAppend
)

// String returns the configuration name of the policy.
func (p DuplicatePolicy) String() string {
	switch p {
	case PolicyOverwrite:
		return "overwrite"
	case PolicyReject:
		return "reject"
	case PolicyMergeAppend:
		return "merge-append"
	default:
		return "unknown"
	}
}

// ParseDuplicatePolicy converts a configuration value into a policy.
// An empty string selects PolicyOverwrite.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch s {
	case "", "overwrite":
		return PolicyOverwrite, nil
	case "reject":
		return PolicyReject, nil
	case "merge-append":
		return PolicyMergeAppend, nil
	default:
		return PolicyOverwrite, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Resolve combines an existing buffered entry with an incoming one according to
// the policy. It returns the entry to keep.
func (p DuplicatePolicy) Resolve(existing, incoming ModuleIndex) (ModuleIndex, error) {
	switch p {
	case PolicyReject:
		if existing.Equal(incoming) {
			return existing, nil
		}
		return existing, fmt.Errorf("%w: %s", ErrDuplicateModule, incoming.Name())
	case PolicyMergeAppend:
		merged := existing.Records()
		for _, r := range incoming.records {
			if !slices.ContainsFunc(merged, r.Equal) {
				merged = append(merged, r)
			}
		}
		return ModuleIndex{name: existing.name, records: merged}, nil
	default:
		return incoming, nil
	}
}
