package bridge

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Game state values emitted by the interpreter.
const (
	GameRunning = "running"
	GameWin     = "win"
	GameFail    = "fail"
	GameDead    = "dead"
)

// Choice is a single selectable transition out of the current location.
type Choice struct {
	JumpID int    `json:"jump_id"`
	Text   string `json:"text"`
}

// State is one parsed game state from the interpreter.
type State struct {
	LocationID  string   `json:"location_id"`
	Text        string   `json:"text"`
	Choices     []Choice `json:"choices"`
	ParamsState []string `json:"params_state"`
	GameState   string   `json:"game_state"`
}

// Terminal reports whether the quest has ended. The interpreter signals
// the end of a playthrough by emitting a state with no choices.
func (s *State) Terminal() bool {
	return len(s.Choices) == 0
}

// Raw wire shapes. The interpreter emits one envelope per line:
// {state:{text,choices,paramsState?,gameState},saving:{locationId,paramValues?}}

type rawEnvelope struct {
	State  *rawState  `json:"state"`
	Saving *rawSaving `json:"saving"`
}

type rawState struct {
	Text        string      `json:"text"`
	Choices     []rawChoice `json:"choices"`
	ParamsState []string    `json:"paramsState"`
	GameState   string      `json:"gameState"`
}

type rawChoice struct {
	JumpID int    `json:"jumpId"`
	Text   string `json:"text"`
}

type rawSaving struct {
	LocationID  interface{}     `json:"locationId"`
	ParamValues json.RawMessage `json:"paramValues"`
}

// parseState decodes a single wire line into a State.
// The line must already be known to be a JSON object with a "state" key.
func parseState(line []byte) (*State, error) {
	var env rawEnvelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, fmt.Errorf("failed to decode state line: %w", err)
	}
	if env.State == nil {
		return nil, fmt.Errorf("state object missing")
	}
	if env.Saving == nil {
		return nil, fmt.Errorf("saving object missing")
	}

	st := &State{
		LocationID: stringifyLocationID(env.Saving.LocationID),
		Text:       cleanText(env.State.Text),
		GameState:  env.State.GameState,
	}
	for _, c := range env.State.Choices {
		st.Choices = append(st.Choices, Choice{
			JumpID: c.JumpID,
			Text:   cleanText(c.Text),
		})
	}
	for _, p := range env.State.ParamsState {
		st.ParamsState = append(st.ParamsState, cleanText(p))
	}

	// Interpreters older than the protocol revision that added gameState
	// omit the field; running is implied while choices remain.
	if st.GameState == "" {
		if len(st.Choices) > 0 {
			st.GameState = GameRunning
		} else {
			st.GameState = GameFail
		}
	}

	return st, nil
}

// cleanText strips interpreter display tags and normalizes line endings.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "<clr>", "")
	s = strings.ReplaceAll(s, "<clrEnd>", "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return s
}

// stringifyLocationID normalizes the locationId field, which some
// interpreter builds emit as a number and others as a string.
func stringifyLocationID(v interface{}) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return fmt.Sprintf("%d", int64(id))
	default:
		return fmt.Sprint(id)
	}
}
