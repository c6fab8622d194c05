package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"

	"quantum_quest_backend/internal/config"
	"quantum_quest_backend/internal/model"
	"quantum_quest_backend/internal/util"
	"quantum_quest_backend/pkg/monitoring"
	"quantum_quest_backend/pkg/quantum"
)

// ScoreResult is the authoritative outcome of re-scoring one submission.
type ScoreResult struct {
	Score     int                    `json:"score"`
	MaxScore  int                    `json:"maxScore"`
	Breakdown map[string]interface{} `json:"breakdown"`
}

// ScoringService recomputes submission scores server side. Every strategy is
// a deterministic, replayable function of the solution and the level's stored
// answer key; the client-reported score is only trusted on the default path,
// and even there it is clamped.
type ScoringService struct {
	oracle quantum.Oracle

	policyMu sync.RWMutex
	policy   config.IntegrityConfig
}

func NewScoringService(oracle quantum.Oracle, policy config.IntegrityConfig) *ScoringService {
	return &ScoringService{oracle: oracle, policy: policy}
}

// SetPolicy swaps the integrity policy; the config watcher calls this on
// reload.
func (s *ScoringService) SetPolicy(policy config.IntegrityConfig) {
	s.policyMu.Lock()
	s.policy = policy
	s.policyMu.Unlock()
}

func (s *ScoringService) policyView() config.IntegrityConfig {
	s.policyMu.RLock()
	defer s.policyMu.RUnlock()
	return s.policy
}

func (s *ScoringService) Score(ctx context.Context, game *model.Game, level *model.Level, raw json.RawMessage) (*ScoreResult, error) {
	cfg := level.DecodeConfig()
	sol, err := ParseSolution(raw)
	if err != nil {
		return nil, util.Reject(util.CodeInvalidScore, "solution payload is not valid JSON", nil)
	}

	monitoring.SubmissionsScored.WithLabelValues(game.Slug).Inc()

	switch game.Slug {
	case model.GameCircuitArchitect:
		return s.scoreCircuitArchitect(ctx, cfg, sol)
	case model.GameGroversMaze:
		return s.scoreGroversMaze(cfg, sol), nil
	case model.GameDeutschChallenge:
		return s.scoreDeutschChallenge(cfg, sol), nil
	case model.GameGatePuzzle:
		return s.scoreGatePuzzle(cfg, sol), nil
	case model.GameQuantumSpy:
		return s.scoreQuantumSpy(cfg, sol), nil
	case model.GameBlochExplorer:
		return s.scoreBlochExplorer(cfg, sol), nil
	case model.GameErrorCorrection:
		return s.scoreErrorCorrection(cfg, sol), nil
	case model.GameEntanglementPairs:
		return s.scoreEntanglementPairs(cfg, sol), nil
	}

	// Unknown game: bounds-checked client score.
	score := clamp(sol.Score, 0, cfg.MaxScore)
	return &ScoreResult{
		Score:    score,
		MaxScore: cfg.MaxScore,
		Breakdown: map[string]interface{}{
			"method":    "client_reported",
			"validated": true,
		},
	}, nil
}

func (s *ScoringService) scoreCircuitArchitect(ctx context.Context, cfg model.LevelConfig, sol *Solution) (*ScoreResult, error) {
	if sol.Circuit == nil || len(cfg.TargetState) == 0 {
		return &ScoreResult{
			Score:    0,
			MaxScore: cfg.MaxScore,
			Breakdown: map[string]interface{}{
				"method": "circuit_verification",
				"error":  "missing circuit or target state",
			},
		}, nil
	}

	result, err := s.oracle.Verify(ctx, *sol.Circuit, cfg.TargetState, s.policyView().VerificationTolerance)
	if err != nil {
		monitoring.OracleRequests.WithLabelValues("error").Inc()
		if errors.Is(err, quantum.ErrInvalidCircuit) {
			return nil, util.Reject(util.CodeInvalidCircuit, err.Error(), nil)
		}
		return nil, err
	}
	monitoring.OracleRequests.WithLabelValues("ok").Inc()

	if !result.Matches {
		return &ScoreResult{
			Score:    0,
			MaxScore: cfg.MaxScore,
			Breakdown: map[string]interface{}{
				"method":  "circuit_verification",
				"matches": false,
				"actual":  result.ActualProbabilities,
			},
		}, nil
	}

	baseScore := 70
	gateCount := sol.Circuit.GateCount()
	optimal := cfg.OptimalGateCount
	if optimal <= 0 {
		optimal = gateCount
	}

	bonus := 30
	if gateCount > optimal {
		bonus = maxInt(0, 30-(gateCount-optimal)*5)
	}

	return &ScoreResult{
		Score:    clamp(baseScore+bonus, 0, cfg.MaxScore),
		MaxScore: cfg.MaxScore,
		Breakdown: map[string]interface{}{
			"method":           "circuit_verification",
			"matches":          true,
			"base_score":       baseScore,
			"efficiency_bonus": bonus,
			"gate_count":       gateCount,
			"optimal_gates":    optimal,
		},
	}, nil
}

func (s *ScoringService) scoreGroversMaze(cfg model.LevelConfig, sol *Solution) *ScoreResult {
	marked := map[int]bool{}
	for _, m := range cfg.MarkedItems {
		marked[m] = true
	}

	if sol.FoundItem == nil || !marked[*sol.FoundItem] {
		return &ScoreResult{
			Score:    0,
			MaxScore: cfg.MaxScore,
			Breakdown: map[string]interface{}{
				"method":        "grover_verification",
				"found_correct": false,
				"found":         sol.FoundItem,
				"expected_in":   cfg.MarkedItems,
			},
		}
	}

	baseScore := 60
	optimal := cfg.OptimalIterations
	if optimal <= 0 {
		optimal = 1
	}
	bonus := 40
	if sol.Iterations > optimal {
		bonus = maxInt(0, 40-(sol.Iterations-optimal)*10)
	}

	return &ScoreResult{
		Score:    clamp(baseScore+bonus, 0, cfg.MaxScore),
		MaxScore: cfg.MaxScore,
		Breakdown: map[string]interface{}{
			"method":             "grover_verification",
			"found_correct":      true,
			"base_score":         baseScore,
			"iteration_bonus":    bonus,
			"iterations_used":    sol.Iterations,
			"optimal_iterations": optimal,
		},
	}
}

func (s *ScoringService) scoreDeutschChallenge(cfg model.LevelConfig, sol *Solution) *ScoreResult {
	if sol.Answer != cfg.OracleType {
		return &ScoreResult{
			Score:    0,
			MaxScore: cfg.MaxScore,
			Breakdown: map[string]interface{}{
				"method":   "deutsch_verification",
				"correct":  false,
				"answer":   sol.Answer,
				"expected": cfg.OracleType,
			},
		}
	}

	queries := 1
	if sol.Queries != nil {
		queries = *sol.Queries
	}

	var score int
	var approach string
	if queries == 1 {
		score = cfg.MaxScore
		approach = "quantum"
	} else {
		score = maxInt(60-(queries-1)*15, 40)
		approach = "classical"
	}

	return &ScoreResult{
		Score:    clamp(score, 0, cfg.MaxScore),
		MaxScore: cfg.MaxScore,
		Breakdown: map[string]interface{}{
			"method":       "deutsch_verification",
			"correct":      true,
			"queries_used": queries,
			"approach":     approach,
		},
	}
}

// singleQubitTransitions is the state table for the gate puzzle: basis state
// crossed with {X, Y, Z, H} (global phase ignored).
var singleQubitTransitions = map[string]map[string]string{
	"|0⟩": {"X": "|1⟩", "Y": "|1⟩", "Z": "|0⟩", "H": "|+⟩"},
	"|1⟩": {"X": "|0⟩", "Y": "|0⟩", "Z": "|1⟩", "H": "|-⟩"},
	"|+⟩": {"X": "|+⟩", "Y": "|-⟩", "Z": "|-⟩", "H": "|0⟩"},
	"|-⟩": {"X": "|-⟩", "Y": "|+⟩", "Z": "|+⟩", "H": "|1⟩"},
}

func (s *ScoringService) scoreGatePuzzle(cfg model.LevelConfig, sol *Solution) *ScoreResult {
	initial := cfg.InitialState
	if initial == "" {
		initial = "|0⟩"
	}

	current := initial
	for _, gate := range sol.Gates {
		if next, ok := singleQubitTransitions[current][string(gate)]; ok {
			current = next
		}
	}

	if current != cfg.TargetStateSymbol {
		return &ScoreResult{
			Score:    0,
			MaxScore: cfg.MaxScore,
			Breakdown: map[string]interface{}{
				"method":         "gate_verification",
				"correct":        false,
				"computed_final": current,
				"expected":       cfg.TargetStateSymbol,
			},
		}
	}

	baseScore := 60
	optimal := cfg.OptimalGateCount
	if optimal <= 0 {
		optimal = 1
	}
	bonus := 40
	if len(sol.Gates) > optimal {
		bonus = maxInt(0, 40-(len(sol.Gates)-optimal)*10)
	}

	return &ScoreResult{
		Score:    clamp(baseScore+bonus, 0, cfg.MaxScore),
		MaxScore: cfg.MaxScore,
		Breakdown: map[string]interface{}{
			"method":           "gate_verification",
			"correct":          true,
			"base_score":       baseScore,
			"efficiency_bonus": bonus,
			"gate_count":       len(sol.Gates),
			"optimal_gates":    optimal,
		},
	}
}

func (s *ScoringService) scoreQuantumSpy(cfg model.LevelConfig, sol *Solution) *ScoreResult {
	eveActive := cfg.EveActive != nil && *cfg.EveActive

	// Bit error rate over positions where Alice's and Bob's bases agree.
	matching := 0
	correct := 0
	for i := 0; i < len(cfg.AliceBases) && i < len(sol.BobBases); i++ {
		if cfg.AliceBases[i] != sol.BobBases[i] {
			continue
		}
		matching++
		if i < len(sol.BobMeasurements) && i < len(cfg.AliceBits) && sol.BobMeasurements[i] == cfg.AliceBits[i] {
			correct++
		}
	}
	errorRate := 0.0
	if matching > 0 {
		errorRate = 1 - float64(correct)/float64(matching)
	}

	total := 0
	breakdown := map[string]interface{}{"method": "bb84_verification"}

	if len(sol.FinalKey) > 0 {
		keyScore := minInt(40, len(sol.FinalKey)*5)
		total += keyScore
		breakdown["key_score"] = keyScore
	}

	var eveScore int
	switch {
	case eveActive && sol.DetectedEve:
		eveScore = 40
		breakdown["eve_detection"] = "correct_positive"
	case !eveActive && !sol.DetectedEve:
		eveScore = 40
		breakdown["eve_detection"] = "correct_negative"
	case eveActive && !sol.DetectedEve:
		eveScore = 0
		breakdown["eve_detection"] = "false_negative"
	default:
		eveScore = 10
		breakdown["eve_detection"] = "false_positive"
	}
	total += eveScore
	breakdown["eve_score"] = eveScore

	expectedError := 0.0
	if eveActive {
		expectedError = 0.25
	}
	protocolScore := maxInt(0, 20-int(math.Abs(errorRate-expectedError)*40))
	total += protocolScore
	breakdown["protocol_score"] = protocolScore
	breakdown["measured_error_rate"] = errorRate

	return &ScoreResult{
		Score:     clamp(total, 0, cfg.MaxScore),
		MaxScore:  cfg.MaxScore,
		Breakdown: breakdown,
	}
}

func (s *ScoringService) scoreBlochExplorer(cfg model.LevelConfig, sol *Solution) *ScoreResult {
	tolerance := cfg.Tolerance
	if tolerance <= 0 {
		tolerance = 0.15
	}

	thetaDiff := math.Abs(cfg.TargetTheta - sol.Theta)
	phiDiff := math.Abs(cfg.TargetPhi - sol.Phi)
	phiDiff = math.Min(phiDiff, 2*math.Pi-phiDiff)

	totalError := math.Sqrt(thetaDiff*thetaDiff + phiDiff*phiDiff)

	var score int
	var accuracy string
	switch {
	case totalError <= tolerance:
		score = cfg.MaxScore
		accuracy = "perfect"
	case totalError <= tolerance*2:
		score = int(float64(cfg.MaxScore) * 0.8)
		accuracy = "good"
	case totalError <= tolerance*4:
		score = int(float64(cfg.MaxScore) * 0.6)
		accuracy = "fair"
	default:
		score = maxInt(0, int(float64(cfg.MaxScore)*(1-totalError/math.Pi)))
		accuracy = "poor"
	}

	return &ScoreResult{
		Score:    clamp(score, 0, cfg.MaxScore),
		MaxScore: cfg.MaxScore,
		Breakdown: map[string]interface{}{
			"method":      "bloch_verification",
			"target":      map[string]float64{"theta": cfg.TargetTheta, "phi": cfg.TargetPhi},
			"achieved":    map[string]float64{"theta": sol.Theta, "phi": sol.Phi},
			"total_error": totalError,
			"accuracy":    accuracy,
		},
	}
}

func (s *ScoringService) scoreErrorCorrection(cfg model.LevelConfig, sol *Solution) *ScoreResult {
	var detectionScore int
	if cfg.TotalErrors > 0 {
		rate := float64(sol.ErrorsDetected) / float64(cfg.TotalErrors)
		detectionScore = int(40 * rate)
	} else if sol.ErrorsDetected == 0 {
		detectionScore = 40
	}

	correctionScore := 40
	if sol.ErrorsDetected > 0 {
		rate := float64(sol.ErrorsCorrected) / float64(sol.ErrorsDetected)
		correctionScore = int(40 * rate)
	}

	fpPenalty := minInt(20, sol.FalsePositives*5)
	fpScore := 20 - fpPenalty

	return &ScoreResult{
		Score:    clamp(detectionScore+correctionScore+fpScore, 0, cfg.MaxScore),
		MaxScore: cfg.MaxScore,
		Breakdown: map[string]interface{}{
			"method":                 "error_correction_verification",
			"detection_score":        detectionScore,
			"correction_score":       correctionScore,
			"false_positive_penalty": fpPenalty,
			"stats": map[string]int{
				"total_errors":    cfg.TotalErrors,
				"detected":        sol.ErrorsDetected,
				"corrected":       sol.ErrorsCorrected,
				"false_positives": sol.FalsePositives,
			},
		},
	}
}

func (s *ScoringService) scoreEntanglementPairs(cfg model.LevelConfig, sol *Solution) *ScoreResult {
	matchesRequired := cfg.MatchesRequired
	if matchesRequired <= 0 {
		matchesRequired = 5
	}
	timeLimit := cfg.TimeLimitSeconds
	if timeLimit <= 0 {
		timeLimit = 60
	}

	timeTaken := timeLimit
	if sol.TimeSeconds != nil {
		timeTaken = *sol.TimeSeconds
	}

	accuracyScore := 0
	if sol.MatchesMade > 0 {
		accuracy := float64(sol.CorrectMatches) / float64(sol.MatchesMade)
		accuracyScore = int(60 * accuracy)
	}

	completionRate := math.Min(1.0, float64(sol.CorrectMatches)/float64(matchesRequired))
	completionScore := int(25 * completionRate)

	var speedBonus int
	switch {
	case float64(timeTaken) < float64(timeLimit)*0.5:
		speedBonus = 15
	case float64(timeTaken) < float64(timeLimit)*0.75:
		speedBonus = 10
	case timeTaken < timeLimit:
		speedBonus = 5
	}

	return &ScoreResult{
		Score:    clamp(accuracyScore+completionScore+speedBonus, 0, cfg.MaxScore),
		MaxScore: cfg.MaxScore,
		Breakdown: map[string]interface{}{
			"method":           "entanglement_pairs_verification",
			"accuracy_score":   accuracyScore,
			"completion_score": completionScore,
			"speed_bonus":      speedBonus,
			"stats": map[string]int{
				"matches_made":    sol.MatchesMade,
				"correct_matches": sol.CorrectMatches,
				"time_taken":      timeTaken,
			},
		},
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
