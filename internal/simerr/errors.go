// Package simerr defines the sentinel errors used across the engine,
// grouped by the four kinds described in spec §7: validation, planning,
// runtime, and contract violations.
package simerr

import "github.com/pkg/errors"

// Validation errors: bad input, reported immediately with no state change.
var (
	ErrUnknownNode         = errors.New("unknown node")
	ErrUnknownEdge         = errors.New("unknown edge")
	ErrUnknownAgent        = errors.New("unknown agent")
	ErrUnknownAccident     = errors.New("unknown accident")
	ErrUnknownMap          = errors.New("unknown map")
	ErrUnknownMode         = errors.New("unknown mode")
	ErrInvalidDistribution = errors.New("invalid distribution")
	ErrEdgeBlocked         = errors.New("edge is blocked")
	ErrAccidentExists      = errors.New("edge already has an active accident")
)

// Planning errors: the planner's explicit "no path" / "invalid endpoint"
// results, wrapped into Go errors the caller branches on.
var (
	ErrNoPath          = errors.New("no path")
	ErrInvalidEndpoint = errors.New("invalid endpoint")
)

// Runtime errors: conditions that must be caught at load time, not at
// runtime (spec §7: "floating-point anomalies ... must be caught at load
// time by validation").
var (
	ErrZeroLengthEdge = errors.New("edge has non-positive length")
	ErrDuplicateNode  = errors.New("duplicate node id")
	ErrDuplicateEdge  = errors.New("duplicate edge")
)

// ContractViolation marks an internal invariant breach (spec §7: "bugs;
// the implementation should assert them in debug builds and log + continue
// in release"). Callers that detect one should construct it with the
// invariant description and either panic (tests / debug builds) or log and
// continue (the running engine).
type ContractViolation struct {
	Invariant string
}

func (c *ContractViolation) Error() string {
	return "contract violation: " + c.Invariant
}

// NewContractViolation builds a ContractViolation for the named invariant.
func NewContractViolation(invariant string) *ContractViolation {
	return &ContractViolation{Invariant: invariant}
}
