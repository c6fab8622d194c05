package model

import "encoding/json"

// Known game slugs. Scoring and challenge generation dispatch over this
// closed set; anything else falls back to bounds-checked client scoring.
const (
	GameCircuitArchitect  = "circuit-architect"
	GameGroversMaze       = "grovers-maze"
	GameDeutschChallenge  = "deutsch-challenge"
	GameGatePuzzle        = "gate-puzzle"
	GameQuantumSpy        = "quantum-spy"
	GameBlochExplorer     = "bloch-sphere-explorer"
	GameErrorCorrection   = "error-correction-sandbox"
	GameEntanglementPairs = "entanglement-pairs"
)

// swagger:model Game
type Game struct {
	UUIDBase

	Slug        string          `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	TargetTier  EducationTier   `gorm:"size:30;not null" json:"targetTier"`
	Config      json.RawMessage `gorm:"type:json" json:"config"`
	IsActive    bool            `gorm:"default:true" json:"isActive"`

	Levels []Level `gorm:"foreignKey:GameID" json:"levels,omitempty"`
}

func (Game) TableName() string {
	return "games"
}

// GameConfig is the typed view of Game.Config.
type GameConfig struct {
	PrerequisiteGames []string `json:"prerequisite_games"`
	VerificationType  string   `json:"verification_type"`
	ServerSideScoring bool     `json:"server_side_scoring"`
}

func (g *Game) DecodeConfig() GameConfig {
	var cfg GameConfig
	if len(g.Config) > 0 {
		_ = json.Unmarshal(g.Config, &cfg)
	}
	return cfg
}

// swagger:model Level
type Level struct {
	UUIDBase

	GameID           string          `gorm:"index:idx_game_sequence,unique;type:varchar(36);not null" json:"gameId"`
	Sequence         int             `gorm:"index:idx_game_sequence,unique;not null" json:"sequence"`
	Title            string          `gorm:"size:255;not null" json:"title"`
	Description      string          `gorm:"type:text" json:"description"`
	Difficulty       int             `gorm:"default:1" json:"difficulty"`
	EstimatedMinutes int             `gorm:"default:5" json:"estimatedMinutes"`
	XPReward         int             `gorm:"default:10" json:"xpReward"`
	Config           json.RawMessage `gorm:"type:json" json:"config"`
	IsActive         bool            `gorm:"default:true" json:"isActive"`
}

func (Level) TableName() string {
	return "levels"
}

// LevelConfig is the typed view of the per-level configuration map. Fields
// vary by game type; DecodeConfig fills what is present and leaves the rest
// zero-valued. Extension fields a specific deployment adds stay in the raw
// JSON and round-trip untouched through challenge generation.
type LevelConfig struct {
	MaxScore int `json:"max_score"`

	// Gating behavior
	RequiresProctoring          bool `json:"requires_proctoring"`
	RequiresCircuitVerification bool `json:"requires_circuit_verification"`
	CheckSolutionDiversity      bool `json:"check_solution_diversity"`
	StrictDiversity             bool `json:"strict_diversity"`

	// Challenge seeding
	ChallengeType string `json:"challenge_type"`
	SeedRotation  string `json:"seed_rotation"`

	// Circuit games
	NumQubits   int                `json:"num_qubits"`
	TargetState map[string]float64 `json:"target_state"`

	// Gate puzzle
	InitialState      string `json:"initial_state"`
	TargetStateSymbol string `json:"target_state_symbol"`
	OptimalGateCount  int    `json:"optimal_gate_count"`

	// Algorithm games
	Algorithm         string `json:"algorithm"`
	MarkedItems       []int  `json:"marked_items"`
	NumMarked         int    `json:"num_marked"`
	OptimalIterations int    `json:"optimal_iterations"`
	OracleType        string `json:"oracle_type"`

	// BB84
	KeyLength  int      `json:"key_length"`
	AliceBits  []int    `json:"alice_bits"`
	AliceBases []string `json:"alice_bases"`
	EveActive  *bool    `json:"eve_active"`

	// Bloch sphere
	TargetTheta float64 `json:"target_theta"`
	TargetPhi   float64 `json:"target_phi"`
	Tolerance   float64 `json:"tolerance"`

	// Error correction
	TotalErrors int `json:"total_errors"`

	// Matching pairs
	MatchesRequired  int `json:"matches_required"`
	TimeLimitSeconds int `json:"time_limit_seconds"`
}

func (l *Level) DecodeConfig() LevelConfig {
	cfg := LevelConfig{MaxScore: 100}
	if len(l.Config) > 0 {
		_ = json.Unmarshal(l.Config, &cfg)
		if cfg.MaxScore <= 0 {
			cfg.MaxScore = 100
		}
	}
	return cfg
}

// ConfigMap returns the raw level configuration as a generic map, the form
// challenge generators augment and hand back to clients.
func (l *Level) ConfigMap() map[string]interface{} {
	out := map[string]interface{}{}
	if len(l.Config) > 0 {
		_ = json.Unmarshal(l.Config, &out)
	}
	return out
}
