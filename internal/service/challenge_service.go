package service

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"quantum_quest_backend/internal/model"
)

// Seed rotation modes. Static folds no time component into the seed, so the
// same user always sees the same challenge; attempt produces a fresh seed on
// every call.
const (
	RotationStatic  = "static"
	RotationDaily   = "daily"
	RotationWeekly  = "weekly"
	RotationAttempt = "attempt"
)

// SeedGenerator derives a deterministic random stream from (user, level,
// rotation bucket). Same inputs always give the same seed and the same
// sequence; changing any input changes the seed.
type SeedGenerator struct {
	seed uint64
	rng  *rand.Rand
}

func NewSeedGenerator(userID, levelID, rotation string) *SeedGenerator {
	return newSeedGeneratorAt(userID, levelID, rotation, time.Now())
}

func newSeedGeneratorAt(userID, levelID, rotation string, now time.Time) *SeedGenerator {
	components := []string{userID, levelID}

	switch rotation {
	case RotationDaily:
		components = append(components, now.Format("2006-01-02"))
	case RotationWeekly:
		year, week := now.ISOWeek()
		components = append(components, fmt.Sprintf("%d-W%d", year, week))
	case RotationAttempt:
		components = append(components, now.UTC().Format(time.RFC3339Nano))
	}
	// static: just user + level

	sum := sha256.Sum256([]byte(strings.Join(components, ":")))
	seed := binary.BigEndian.Uint64(sum[:8])

	return &SeedGenerator{
		seed: seed,
		rng:  rand.New(rand.NewSource(int64(seed))),
	}
}

func (g *SeedGenerator) Seed() uint64 {
	return g.seed
}

// RandomInt returns a value in [min, max] inclusive.
func (g *SeedGenerator) RandomInt(min, max int) int {
	return min + g.rng.Intn(max-min+1)
}

func (g *SeedGenerator) RandomFloat(min, max float64) float64 {
	return min + g.rng.Float64()*(max-min)
}

func (g *SeedGenerator) Choice(options []string) string {
	return options[g.rng.Intn(len(options))]
}

// Sample picks k distinct elements. k larger than the population is clamped,
// not an error.
func (g *SeedGenerator) Sample(options []int, k int) []int {
	if k > len(options) {
		k = len(options)
	}
	shuffled := g.ShuffleInts(options)
	return shuffled[:k]
}

// Shuffle returns a shuffled copy, leaving the input untouched.
func (g *SeedGenerator) Shuffle(items []string) []string {
	out := make([]string, len(items))
	copy(out, items)
	g.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

func (g *SeedGenerator) ShuffleInts(items []int) []int {
	out := make([]int, len(items))
	copy(out, items)
	g.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// LevelGetter is the slice of the level repository the challenge service
// needs.
type LevelGetter interface {
	FindByID(id string) (*model.Level, error)
}

// ChallengeService injects per-student seeded parameters into level
// configurations.
type ChallengeService struct {
	levels LevelGetter
}

func NewChallengeService(levels LevelGetter) *ChallengeService {
	return &ChallengeService{levels: levels}
}

type challengeGenerator func(g *SeedGenerator, cfg map[string]interface{}) map[string]interface{}

var challengeGenerators = map[string]challengeGenerator{
	"circuit":       generateCircuitChallenge,
	"gate_puzzle":   generateGatePuzzleChallenge,
	"grover":        generateGroverChallenge,
	"deutsch_jozsa": generateDeutschChallenge,
	"bb84":          generateBB84Challenge,
}

// ChallengeParams returns the level configuration augmented with seeded,
// per-student fields. Levels without a known challenge_type pass through
// unchanged.
func (s *ChallengeService) ChallengeParams(userID, levelID, rotation string) (map[string]interface{}, error) {
	level, err := s.levels.FindByID(levelID)
	if err != nil {
		return nil, err
	}

	cfg := level.ConfigMap()

	if rotation == "" {
		if r, ok := cfg["seed_rotation"].(string); ok && r != "" {
			rotation = r
		} else {
			rotation = RotationDaily
		}
	}

	challengeType, _ := cfg["challenge_type"].(string)
	generate, ok := challengeGenerators[challengeType]
	if !ok {
		return cfg, nil
	}

	g := NewSeedGenerator(userID, level.ID, rotation)
	return generate(g, cfg), nil
}

func generateCircuitChallenge(g *SeedGenerator, cfg map[string]interface{}) map[string]interface{} {
	out := cloneConfig(cfg)
	numQubits := cfgInt(cfg, "num_qubits", 2)
	variant, _ := cfg["circuit_variant"].(string)
	if variant == "" {
		variant = "bell_state"
	}

	switch variant {
	case "bell_state":
		bellStates := []map[string]float64{
			{"00": 0.5, "11": 0.5},
			{"01": 0.5, "10": 0.5},
			{"00": 0.5, "11": 0.5},
			{"01": 0.5, "10": 0.5},
		}
		names := []string{"Phi+", "Psi+", "Phi-", "Psi-"}
		idx := g.RandomInt(0, len(bellStates)-1)
		out["target_state"] = bellStates[idx]
		out["target_name"] = names[idx]
	case "ghz_state":
		upper := numQubits
		if upper > 5 {
			upper = 5
		}
		if upper < 3 {
			upper = 3
		}
		n := g.RandomInt(3, upper)
		out["num_qubits"] = n
		out["target_state"] = map[string]float64{
			strings.Repeat("0", n): 0.5,
			strings.Repeat("1", n): 0.5,
		}
		out["target_name"] = fmt.Sprintf("GHZ_%d", n)
	case "superposition":
		out["target_qubit"] = g.RandomInt(0, numQubits-1)
	}

	out["seed"] = g.Seed()
	return out
}

// gatePuzzleOptimal gives the minimum gate count between single-qubit basis
// states under the {X, Y, Z, H} gate set.
var gatePuzzleOptimal = map[[2]string]int{
	{"|0⟩", "|1⟩"}: 1,
	{"|0⟩", "|+⟩"}: 1,
	{"|0⟩", "|-⟩"}: 2,
	{"|1⟩", "|0⟩"}: 1,
	{"|1⟩", "|+⟩"}: 2,
	{"|1⟩", "|-⟩"}: 1,
	{"|+⟩", "|0⟩"}: 1,
	{"|+⟩", "|1⟩"}: 2,
	{"|+⟩", "|-⟩"}: 1,
	{"|-⟩", "|0⟩"}: 2,
	{"|-⟩", "|1⟩"}: 1,
	{"|-⟩", "|+⟩"}: 1,
}

func generateGatePuzzleChallenge(g *SeedGenerator, cfg map[string]interface{}) map[string]interface{} {
	out := cloneConfig(cfg)
	states := []string{"|0⟩", "|1⟩", "|+⟩", "|-⟩"}

	initial := g.Choice(states)
	others := make([]string, 0, len(states)-1)
	for _, s := range states {
		if s != initial {
			others = append(others, s)
		}
	}
	target := g.Choice(others)

	optimal, ok := gatePuzzleOptimal[[2]string{initial, target}]
	if !ok {
		optimal = 2
	}

	out["initial_state"] = initial
	out["target_state_symbol"] = target
	out["optimal_gate_count"] = optimal
	out["seed"] = g.Seed()
	return out
}

func generateGroverChallenge(g *SeedGenerator, cfg map[string]interface{}) map[string]interface{} {
	out := cloneConfig(cfg)
	numQubits := cfgInt(cfg, "num_qubits", 3)
	searchSpace := 1 << numQubits
	numMarked := cfgInt(cfg, "num_marked", 1)

	all := make([]int, searchSpace)
	for i := range all {
		all[i] = i
	}
	marked := g.Sample(all, numMarked)

	binary := make([]string, len(marked))
	for i, m := range marked {
		binary[i] = fmt.Sprintf("%0*b", numQubits, m)
	}

	optimal := int(math.Round(math.Pi / 4 * math.Sqrt(float64(searchSpace)/float64(len(marked)))))
	if optimal < 1 {
		optimal = 1
	}

	out["marked_items"] = marked
	out["marked_items_binary"] = binary
	out["optimal_iterations"] = optimal
	out["search_space_size"] = searchSpace
	out["seed"] = g.Seed()
	return out
}

func generateDeutschChallenge(g *SeedGenerator, cfg map[string]interface{}) map[string]interface{} {
	out := cloneConfig(cfg)

	oracleType := g.Choice([]string{"constant", "balanced"})
	out["oracle_type"] = oracleType
	if oracleType == "constant" {
		out["oracle_value"] = g.RandomInt(0, 1)
		out["hint"] = "The output is the same for all inputs"
	} else {
		out["hint"] = "The output is 0 for half the inputs and 1 for the other half"
	}

	out["seed"] = g.Seed()
	return out
}

func generateBB84Challenge(g *SeedGenerator, cfg map[string]interface{}) map[string]interface{} {
	out := cloneConfig(cfg)
	keyLength := cfgInt(cfg, "key_length", 8)

	aliceBits := make([]int, keyLength)
	aliceBases := make([]string, keyLength)
	for i := 0; i < keyLength; i++ {
		aliceBits[i] = g.RandomInt(0, 1)
		aliceBases[i] = g.Choice([]string{"Z", "X"})
	}

	eveActive, configured := cfg["eve_active"].(bool)
	if !configured {
		eveActive = g.RandomFloat(0, 1) < 0.5
	}

	expectedError := 0.0
	if eveActive {
		expectedError = 0.25
	}

	out["alice_bits"] = aliceBits
	out["alice_bases"] = aliceBases
	out["eve_active"] = eveActive
	out["expected_error_rate"] = expectedError
	out["seed"] = g.Seed()
	return out
}

func cloneConfig(cfg map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(cfg)+4)
	for k, v := range cfg {
		out[k] = v
	}
	return out
}

func cfgInt(cfg map[string]interface{}, key string, def int) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}
