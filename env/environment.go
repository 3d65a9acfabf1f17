// Package env presents a quest playthrough as a reset/step environment.
//
// The environment hides jump-ID opacity from agents: each step exposes
// an ordered list of rendered choices, and agents act by 1-based index
// into that list. The index-to-jump mapping is rebuilt on every step
// and never persisted.
package env

import (
	"context"
	"fmt"

	"github.com/richinex/questbench/bridge"
)

// Observation is what an agent sees at one step.
type Observation struct {
	LocationID      string   `json:"location_id"`
	Text            string   `json:"text"`
	ChoicesRendered []string `json:"choices"`
	ParamsState     []string `json:"params_state"`
	ChoiceJumpIDs   []int    `json:"choice_jump_ids"`
}

// ChoiceCount returns the number of valid actions at this observation.
func (o Observation) ChoiceCount() int {
	return len(o.ChoicesRendered)
}

// InvalidActionError reports an action outside [1, len(choices)].
// It is raised before anything is sent to the interpreter, so the
// bridge step is not consumed.
type InvalidActionError struct {
	Action  int
	Choices int
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("invalid action %d: valid actions are 1..%d", e.Action, e.Choices)
}

// Environment wraps one bridge session in a reset/step interface.
type Environment struct {
	cfg     bridge.Config
	bridge  *bridge.Bridge
	current *bridge.State
}

// New creates an environment for one quest. The bridge subprocess is
// not started until Reset.
func New(cfg bridge.Config) *Environment {
	return &Environment{cfg: cfg}
}

// Reset starts (or restarts) the interpreter and returns the initial
// observation.
func (e *Environment) Reset(ctx context.Context) (Observation, error) {
	if e.bridge != nil {
		_ = e.bridge.Close()
		e.bridge = nil
	}

	b, initial, err := bridge.Start(ctx, e.cfg)
	if err != nil {
		return Observation{}, err
	}
	e.bridge = b
	e.current = initial
	return e.observe(initial), nil
}

// Step performs the action (a 1-based choice index) and returns the
// next observation, the reward, and whether the quest ended.
func (e *Environment) Step(ctx context.Context, action int) (Observation, float64, bool, error) {
	if e.bridge == nil || e.current == nil {
		return Observation{}, 0, false, fmt.Errorf("environment not reset")
	}
	if action < 1 || action > len(e.current.Choices) {
		return Observation{}, 0, false, &InvalidActionError{Action: action, Choices: len(e.current.Choices)}
	}

	jumpID := e.current.Choices[action-1].JumpID
	next, err := e.bridge.Step(ctx, jumpID)
	if err != nil {
		return Observation{}, 0, false, err
	}

	e.current = next
	done := next.Terminal()
	return e.observe(next), Reward(next), done, nil
}

// Current returns the latest bridge state, or nil before Reset.
func (e *Environment) Current() *bridge.State {
	return e.current
}

// Close terminates the interpreter subprocess. Safe to call on every
// exit path.
func (e *Environment) Close() error {
	if e.bridge == nil {
		return nil
	}
	return e.bridge.Close()
}

// Reward implements the reward policy: 1.0 on a terminal win state,
// 0.0 everywhere else (including intermediate steps).
func Reward(s *bridge.State) float64 {
	if s.Terminal() && s.GameState == bridge.GameWin {
		return 1.0
	}
	return 0.0
}

func (e *Environment) observe(s *bridge.State) Observation {
	obs := Observation{
		LocationID:  s.LocationID,
		Text:        s.Text,
		ParamsState: append([]string{}, s.ParamsState...),
	}
	for _, c := range s.Choices {
		obs.ChoicesRendered = append(obs.ChoicesRendered, c.Text)
		obs.ChoiceJumpIDs = append(obs.ChoiceJumpIDs, c.JumpID)
	}
	return obs
}
