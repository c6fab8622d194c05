package quantum

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrOracleUnavailable marks transport or server failures talking to the
// simulator, as opposed to a circuit the simulator rejected. Callers must not
// turn an outage into a zero score.
var ErrOracleUnavailable = errors.New("quantum oracle unavailable")

type SimulationResult struct {
	Counts        map[string]int     `json:"counts"`
	Probabilities map[string]float64 `json:"probabilities"`
}

type Verification struct {
	Matches             bool               `json:"matches"`
	Score               float64            `json:"score"`
	ActualProbabilities map[string]float64 `json:"actual_probabilities"`
}

// Oracle is the circuit simulation boundary. Implementations must distinguish
// an invalid circuit (ErrInvalidCircuit) from an unreachable backend
// (ErrOracleUnavailable).
type Oracle interface {
	Simulate(ctx context.Context, circuit Circuit, shots int) (*SimulationResult, error)
	Verify(ctx context.Context, circuit Circuit, targetState map[string]float64, tolerance float64) (*Verification, error)
}

// HTTPOracle talks to the simulator service over its JSON API.
type HTTPOracle struct {
	baseURL string
	client  *http.Client
}

func NewHTTPOracle(baseURL string, timeout time.Duration) *HTTPOracle {
	return &HTTPOracle{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (o *HTTPOracle) Simulate(ctx context.Context, circuit Circuit, shots int) (*SimulationResult, error) {
	if err := circuit.Validate(); err != nil {
		return nil, err
	}
	payload := map[string]interface{}{
		"num_qubits": circuit.NumQubits,
		"operations": circuit.Operations,
		"shots":      shots,
	}
	var result SimulationResult
	if err := o.post(ctx, "/v1/simulate", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (o *HTTPOracle) Verify(ctx context.Context, circuit Circuit, targetState map[string]float64, tolerance float64) (*Verification, error) {
	if err := circuit.Validate(); err != nil {
		return nil, err
	}
	payload := map[string]interface{}{
		"num_qubits":   circuit.NumQubits,
		"operations":   circuit.Operations,
		"target_state": targetState,
		"tolerance":    tolerance,
	}
	var result Verification
	if err := o.post(ctx, "/v1/verify", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (o *HTTPOracle) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("%w: %s", ErrInvalidCircuit, apiErr.Message)
	default:
		return fmt.Errorf("%w: status %d", ErrOracleUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: bad response: %v", ErrOracleUnavailable, err)
	}
	return nil
}
