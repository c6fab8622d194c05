package quantum

import (
	"errors"
	"fmt"
)

// Operation is a single gate application in a circuit, in the wire format
// clients submit and the simulator service accepts.
type Operation struct {
	Gate   string    `json:"gate"`
	Qubits []int     `json:"qubits"`
	Params []float64 `json:"params,omitempty"`
}

type Circuit struct {
	NumQubits  int         `json:"num_qubits"`
	Operations []Operation `json:"operations"`
}

var ErrInvalidCircuit = errors.New("invalid circuit")

// gateQubits maps every supported gate to the number of qubits it acts on.
// CX is accepted as an alias for CNOT.
var gateQubits = map[string]int{
	"I": 1, "X": 1, "Y": 1, "Z": 1,
	"H": 1, "S": 1, "T": 1,
	"RX": 1, "RY": 1, "RZ": 1,
	"CNOT": 2, "CX": 2, "CZ": 2, "SWAP": 2,
	"CCX": 3, "CSWAP": 3,
}

// gateParams maps gates that take angle parameters to their arity.
var gateParams = map[string]int{
	"RX": 1, "RY": 1, "RZ": 1,
}

// KnownGate reports whether name is in the supported gate set.
func KnownGate(name string) bool {
	_, ok := gateQubits[name]
	return ok
}

// Validate checks the circuit against the supported gate set: known gates,
// correct qubit counts, qubit indices in range and distinct, and required
// rotation parameters present. Errors wrap ErrInvalidCircuit.
func (c Circuit) Validate() error {
	if c.NumQubits < 1 {
		return fmt.Errorf("%w: num_qubits must be positive, got %d", ErrInvalidCircuit, c.NumQubits)
	}
	for i, op := range c.Operations {
		want, ok := gateQubits[op.Gate]
		if !ok {
			return fmt.Errorf("%w: unknown gate %q at operation %d", ErrInvalidCircuit, op.Gate, i)
		}
		if len(op.Qubits) != want {
			return fmt.Errorf("%w: gate %s expects %d qubit(s), got %d at operation %d", ErrInvalidCircuit, op.Gate, want, len(op.Qubits), i)
		}
		seen := map[int]bool{}
		for _, q := range op.Qubits {
			if q < 0 || q >= c.NumQubits {
				return fmt.Errorf("%w: qubit %d out of range at operation %d", ErrInvalidCircuit, q, i)
			}
			if seen[q] {
				return fmt.Errorf("%w: duplicate qubit %d at operation %d", ErrInvalidCircuit, q, i)
			}
			seen[q] = true
		}
		if np := gateParams[op.Gate]; len(op.Params) != np {
			return fmt.Errorf("%w: gate %s expects %d param(s), got %d at operation %d", ErrInvalidCircuit, op.Gate, np, len(op.Params), i)
		}
	}
	return nil
}

// GateCount returns the number of operations, the unit optimality bonuses
// are computed against.
func (c Circuit) GateCount() int {
	return len(c.Operations)
}
