package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"

	"quantum_quest_backend/internal/config"
	"quantum_quest_backend/internal/model"
	"quantum_quest_backend/internal/util"
	"quantum_quest_backend/pkg/quantum"
)

type stubOracle struct {
	verification *quantum.Verification
	err          error
}

func (o *stubOracle) Simulate(ctx context.Context, circuit quantum.Circuit, shots int) (*quantum.SimulationResult, error) {
	return nil, o.err
}

func (o *stubOracle) Verify(ctx context.Context, circuit quantum.Circuit, targetState map[string]float64, tolerance float64) (*quantum.Verification, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.verification, nil
}

func newTestScoring(oracle quantum.Oracle) *ScoringService {
	return NewScoringService(oracle, config.DefaultIntegrity())
}

func scoreGame(t *testing.T, svc *ScoringService, slug string, levelCfg, solution map[string]interface{}) *ScoreResult {
	t.Helper()
	game := &model.Game{Slug: slug}
	rawCfg, _ := json.Marshal(levelCfg)
	level := &model.Level{Config: rawCfg}
	rawSol, _ := json.Marshal(solution)

	result, err := svc.Score(context.Background(), game, level, rawSol)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	return result
}

func TestScoreGatePuzzle(t *testing.T) {
	svc := newTestScoring(&stubOracle{})
	cfg := map[string]interface{}{
		"initial_state":       "|0⟩",
		"target_state_symbol": "|+⟩",
		"optimal_gate_count":  1,
	}

	cases := []struct {
		name  string
		gates []string
		want  int
	}{
		{"optimal H", []string{"H"}, 100},
		{"wrong gate", []string{"X"}, 0},
		{"wasteful but correct", []string{"H", "Z", "Z"}, 80},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := scoreGame(t, svc, model.GameGatePuzzle, cfg, map[string]interface{}{"gates": tc.gates})
			if result.Score != tc.want {
				t.Fatalf("score: got %d want %d (breakdown %v)", result.Score, tc.want, result.Breakdown)
			}
		})
	}
}

func TestScoreGatePuzzleAcceptsObjectGates(t *testing.T) {
	svc := newTestScoring(&stubOracle{})
	result := scoreGame(t, svc, model.GameGatePuzzle,
		map[string]interface{}{"initial_state": "|0⟩", "target_state_symbol": "|1⟩", "optimal_gate_count": 1},
		map[string]interface{}{"gates": []map[string]string{{"gate": "X"}}})
	if result.Score != 100 {
		t.Fatalf("object-form gates not accepted, score %d", result.Score)
	}
}

func TestScoreDeutschChallenge(t *testing.T) {
	svc := newTestScoring(&stubOracle{})
	cfg := map[string]interface{}{"oracle_type": "balanced"}

	result := scoreGame(t, svc, model.GameDeutschChallenge, cfg,
		map[string]interface{}{"answer": "balanced", "queries": 1})
	if result.Score != 100 || result.Breakdown["approach"] != "quantum" {
		t.Fatalf("single query should be a perfect quantum run: %d %v", result.Score, result.Breakdown)
	}

	result = scoreGame(t, svc, model.GameDeutschChallenge, cfg,
		map[string]interface{}{"answer": "balanced", "queries": 3})
	if result.Score != 40 || result.Breakdown["approach"] != "classical" {
		t.Fatalf("multi-query run: got %d %v", result.Score, result.Breakdown)
	}

	result = scoreGame(t, svc, model.GameDeutschChallenge, cfg,
		map[string]interface{}{"answer": "constant", "queries": 1})
	if result.Score != 0 {
		t.Fatalf("wrong answer must score 0, got %d", result.Score)
	}

	// A missing query count is treated as the single-query quantum approach.
	result = scoreGame(t, svc, model.GameDeutschChallenge, cfg,
		map[string]interface{}{"answer": "balanced"})
	if result.Score != 100 {
		t.Fatalf("missing queries should default to 1, got %d", result.Score)
	}
}

func TestScoreGroversMaze(t *testing.T) {
	svc := newTestScoring(&stubOracle{})
	cfg := map[string]interface{}{
		"marked_items":       []int{3, 5},
		"optimal_iterations": 2,
	}

	result := scoreGame(t, svc, model.GameGroversMaze, cfg,
		map[string]interface{}{"found_item": 3, "iterations": 2})
	if result.Score != 100 {
		t.Fatalf("optimal run: got %d", result.Score)
	}

	result = scoreGame(t, svc, model.GameGroversMaze, cfg,
		map[string]interface{}{"found_item": 5, "iterations": 4})
	if result.Score != 80 {
		t.Fatalf("two extra iterations should cost 20: got %d", result.Score)
	}

	result = scoreGame(t, svc, model.GameGroversMaze, cfg,
		map[string]interface{}{"found_item": 1, "iterations": 2})
	if result.Score != 0 {
		t.Fatalf("unmarked item must score 0, got %d", result.Score)
	}

	result = scoreGame(t, svc, model.GameGroversMaze, cfg,
		map[string]interface{}{"iterations": 2})
	if result.Score != 0 {
		t.Fatalf("missing found_item must score 0, got %d", result.Score)
	}
}

func TestScoreCircuitArchitect(t *testing.T) {
	oracle := &stubOracle{verification: &quantum.Verification{Matches: true, Score: 1.0}}
	svc := newTestScoring(oracle)
	cfg := map[string]interface{}{
		"target_state":       map[string]float64{"00": 0.5, "11": 0.5},
		"optimal_gate_count": 2,
	}
	bell := map[string]interface{}{
		"circuit": map[string]interface{}{
			"num_qubits": 2,
			"operations": []map[string]interface{}{
				{"gate": "H", "qubits": []int{0}},
				{"gate": "CNOT", "qubits": []int{0, 1}},
			},
		},
	}

	result := scoreGame(t, svc, model.GameCircuitArchitect, cfg, bell)
	if result.Score != 100 {
		t.Fatalf("matching optimal circuit: got %d (%v)", result.Score, result.Breakdown)
	}

	wasteful := map[string]interface{}{
		"circuit": map[string]interface{}{
			"num_qubits": 2,
			"operations": []map[string]interface{}{
				{"gate": "H", "qubits": []int{0}},
				{"gate": "X", "qubits": []int{1}},
				{"gate": "X", "qubits": []int{1}},
				{"gate": "CNOT", "qubits": []int{0, 1}},
			},
		},
	}
	result = scoreGame(t, svc, model.GameCircuitArchitect, cfg, wasteful)
	if result.Score != 90 {
		t.Fatalf("two extra gates should cost 10: got %d", result.Score)
	}

	oracle.verification = &quantum.Verification{Matches: false}
	result = scoreGame(t, svc, model.GameCircuitArchitect, cfg, bell)
	if result.Score != 0 {
		t.Fatalf("non-matching circuit must score 0, got %d", result.Score)
	}
}

func TestScoreCircuitArchitectOracleOutage(t *testing.T) {
	svc := newTestScoring(&stubOracle{err: quantum.ErrOracleUnavailable})
	game := &model.Game{Slug: model.GameCircuitArchitect}
	rawCfg, _ := json.Marshal(map[string]interface{}{"target_state": map[string]float64{"00": 1}})
	level := &model.Level{Config: rawCfg}
	rawSol, _ := json.Marshal(map[string]interface{}{
		"circuit": map[string]interface{}{
			"num_qubits": 1,
			"operations": []map[string]interface{}{{"gate": "X", "qubits": []int{0}}},
		},
	})

	_, err := svc.Score(context.Background(), game, level, rawSol)
	if !errors.Is(err, quantum.ErrOracleUnavailable) {
		t.Fatalf("oracle outage must propagate, not become a score: %v", err)
	}
}

func TestScoreCircuitArchitectRejectsInvalidCircuit(t *testing.T) {
	svc := newTestScoring(&stubOracle{err: fmt.Errorf("%w: unknown gate %q", quantum.ErrInvalidCircuit, "FOO")})
	game := &model.Game{Slug: model.GameCircuitArchitect}
	rawCfg, _ := json.Marshal(map[string]interface{}{"target_state": map[string]float64{"00": 1}})
	level := &model.Level{Config: rawCfg}
	rawSol, _ := json.Marshal(map[string]interface{}{
		"circuit": map[string]interface{}{
			"num_qubits": 1,
			"operations": []map[string]interface{}{{"gate": "FOO", "qubits": []int{0}}},
		},
	})

	_, err := svc.Score(context.Background(), game, level, rawSol)
	re, ok := util.AsRejection(err)
	if !ok || re.Code != util.CodeInvalidCircuit {
		t.Fatalf("malformed circuit must become a rejection the client can fix, got %v", err)
	}
	if re.HTTPStatus() != 422 {
		t.Fatalf("invalid circuit rejection status = %d", re.HTTPStatus())
	}
}

func TestScoreQuantumSpy(t *testing.T) {
	svc := newTestScoring(&stubOracle{})
	eve := false
	cfg := map[string]interface{}{
		"alice_bits":  []int{0, 1, 0, 1},
		"alice_bases": []string{"Z", "X", "Z", "X"},
		"eve_active":  eve,
	}

	result := scoreGame(t, svc, model.GameQuantumSpy, cfg, map[string]interface{}{
		"bob_bases":        []string{"Z", "X", "Z", "X"},
		"bob_measurements": []int{0, 1, 0, 1},
		"detected_eve":     false,
		"final_key":        []int{0, 1, 0, 1, 0, 1, 0, 1},
	})
	if result.Score != 100 {
		t.Fatalf("clean protocol run: got %d (%v)", result.Score, result.Breakdown)
	}
	if result.Breakdown["eve_detection"] != "correct_negative" {
		t.Fatalf("eve detection label: %v", result.Breakdown["eve_detection"])
	}

	cfg["eve_active"] = true
	result = scoreGame(t, svc, model.GameQuantumSpy, cfg, map[string]interface{}{
		"bob_bases":        []string{"Z", "X", "Z", "X"},
		"bob_measurements": []int{0, 1, 0, 1},
		"detected_eve":     false,
		"final_key":        []int{0, 1},
	})
	if result.Breakdown["eve_detection"] != "false_negative" || result.Breakdown["eve_score"] != 0 {
		t.Fatalf("missed Eve should earn nothing: %v", result.Breakdown)
	}
}

func TestScoreBlochExplorer(t *testing.T) {
	svc := newTestScoring(&stubOracle{})
	cfg := map[string]interface{}{
		"target_theta": 1.0,
		"target_phi":   1.0,
		"tolerance":    0.15,
	}

	result := scoreGame(t, svc, model.GameBlochExplorer, cfg,
		map[string]interface{}{"theta": 1.0, "phi": 1.0})
	if result.Score != 100 || result.Breakdown["accuracy"] != "perfect" {
		t.Fatalf("exact placement: %d %v", result.Score, result.Breakdown)
	}

	result = scoreGame(t, svc, model.GameBlochExplorer, cfg,
		map[string]interface{}{"theta": 1.25, "phi": 1.0})
	if result.Score != 80 || result.Breakdown["accuracy"] != "good" {
		t.Fatalf("within 2x tolerance: %d %v", result.Score, result.Breakdown)
	}

	// Azimuthal angle wraps: 0.1 and 2pi-0.05 are 0.15 apart.
	wrapCfg := map[string]interface{}{
		"target_theta": 1.0,
		"target_phi":   0.1,
		"tolerance":    0.15,
	}
	result = scoreGame(t, svc, model.GameBlochExplorer, wrapCfg,
		map[string]interface{}{"theta": 1.0, "phi": 2*math.Pi - 0.05})
	if result.Breakdown["accuracy"] != "perfect" {
		t.Fatalf("phi wraparound not applied: %v", result.Breakdown)
	}
}

func TestScoreErrorCorrection(t *testing.T) {
	svc := newTestScoring(&stubOracle{})
	cfg := map[string]interface{}{"total_errors": 4}

	result := scoreGame(t, svc, model.GameErrorCorrection, cfg, map[string]interface{}{
		"errors_detected":  4,
		"errors_corrected": 4,
		"false_positives":  0,
	})
	if result.Score != 100 {
		t.Fatalf("perfect run: got %d (%v)", result.Score, result.Breakdown)
	}

	result = scoreGame(t, svc, model.GameErrorCorrection, cfg, map[string]interface{}{
		"errors_detected":  2,
		"errors_corrected": 1,
		"false_positives":  3,
	})
	// detection 20, correction 20, fp score 5
	if result.Score != 45 {
		t.Fatalf("partial run: got %d (%v)", result.Score, result.Breakdown)
	}

	// No injected errors: full detection credit for staying quiet.
	result = scoreGame(t, svc, model.GameErrorCorrection,
		map[string]interface{}{"total_errors": 0},
		map[string]interface{}{"errors_detected": 0, "errors_corrected": 0, "false_positives": 0})
	if result.Score != 100 {
		t.Fatalf("quiet run with no errors: got %d", result.Score)
	}
}

func TestScoreEntanglementPairs(t *testing.T) {
	svc := newTestScoring(&stubOracle{})
	cfg := map[string]interface{}{
		"matches_required":   5,
		"time_limit_seconds": 60,
	}

	cases := []struct {
		name string
		sol  map[string]interface{}
		want int
	}{
		{"fast perfect", map[string]interface{}{"matches_made": 5, "correct_matches": 5, "time_seconds": 20}, 100},
		{"medium speed", map[string]interface{}{"matches_made": 5, "correct_matches": 5, "time_seconds": 40}, 95},
		{"over the limit", map[string]interface{}{"matches_made": 5, "correct_matches": 5, "time_seconds": 70}, 85},
		{"half right", map[string]interface{}{"matches_made": 4, "correct_matches": 2, "time_seconds": 70}, 40},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := scoreGame(t, svc, model.GameEntanglementPairs, cfg, tc.sol)
			if result.Score != tc.want {
				t.Fatalf("got %d want %d (%v)", result.Score, tc.want, result.Breakdown)
			}
		})
	}
}

func TestScoreUnknownGameClampsClientScore(t *testing.T) {
	svc := newTestScoring(&stubOracle{})
	cfg := map[string]interface{}{"max_score": 100}

	result := scoreGame(t, svc, "some-future-game", cfg, map[string]interface{}{"score": 250})
	if result.Score != 100 {
		t.Fatalf("client score should be clamped to max, got %d", result.Score)
	}
	if result.Breakdown["method"] != "client_reported" {
		t.Fatalf("breakdown method: %v", result.Breakdown["method"])
	}

	result = scoreGame(t, svc, "some-future-game", cfg, map[string]interface{}{"score": -5})
	if result.Score != 0 {
		t.Fatalf("negative client score should clamp to 0, got %d", result.Score)
	}
}
