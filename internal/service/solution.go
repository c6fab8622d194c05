package service

import (
	"encoding/json"

	"quantum_quest_backend/pkg/quantum"
)

// GateRef accepts both wire forms clients send for a gate in a sequence:
// a bare string ("H") or an object ({"gate": "H"}).
type GateRef string

func (g *GateRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*g = GateRef(s)
		return nil
	}
	var obj struct {
		Gate string `json:"gate"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*g = GateRef(obj.Gate)
	return nil
}

// Solution is the typed view of a submitted solution payload. Fields are
// populated per game type; scorers read only the ones they grade.
type Solution struct {
	Score int `json:"score"`

	// Circuit games
	Circuit *quantum.Circuit `json:"circuit,omitempty"`

	// Gate puzzle
	Gates      []GateRef `json:"gates,omitempty"`
	FinalState string    `json:"final_state,omitempty"`

	// Grover search
	FoundItem  *int `json:"found_item,omitempty"`
	Iterations int  `json:"iterations,omitempty"`

	// Deutsch-Jozsa
	Answer  string `json:"answer,omitempty"`
	Queries *int   `json:"queries,omitempty"`

	// BB84
	BobBases        []string `json:"bob_bases,omitempty"`
	BobMeasurements []int    `json:"bob_measurements,omitempty"`
	DetectedEve     bool     `json:"detected_eve,omitempty"`
	FinalKey        []int    `json:"final_key,omitempty"`

	// Bloch sphere
	Theta float64 `json:"theta,omitempty"`
	Phi   float64 `json:"phi,omitempty"`

	// Error correction
	ErrorsDetected  int `json:"errors_detected,omitempty"`
	ErrorsCorrected int `json:"errors_corrected,omitempty"`
	FalsePositives  int `json:"false_positives,omitempty"`

	// Matching pairs
	MatchesMade    int  `json:"matches_made,omitempty"`
	CorrectMatches int  `json:"correct_matches,omitempty"`
	TimeSeconds    *int `json:"time_seconds,omitempty"`
}

func ParseSolution(raw json.RawMessage) (*Solution, error) {
	var s Solution
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
