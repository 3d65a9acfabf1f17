package env

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/richinex/questbench/bridge"
)

func scriptedQuest(t *testing.T, script string) bridge.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "interp.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatalf("failed to write interpreter script: %v", err)
	}
	quest := filepath.Join(dir, "quest.qm")
	if err := os.WriteFile(quest, []byte("qm"), 0644); err != nil {
		t.Fatalf("failed to write quest file: %v", err)
	}
	return bridge.Config{
		Command:     []string{"/bin/sh", path},
		QuestPath:   quest,
		ReadTimeout: 5 * time.Second,
	}
}

const twoStepQuest = `
start='{"state":{"text":"Crossroads","choices":[{"jumpId":30,"text":"North"},{"jumpId":40,"text":"South"}],"paramsState":["Gold: 5"],"gameState":"running"},"saving":{"locationId":1}}'
win='{"state":{"text":"Treasure","choices":[],"gameState":"win"},"saving":{"locationId":2}}'
lose='{"state":{"text":"Pit","choices":[],"gameState":"fail"},"saving":{"locationId":3}}'
echo "$start"
while read cmd; do
  case "$cmd" in
    30) echo "$win";;
    40) echo "$lose";;
    *) echo "$start";;
  esac
done
`

func TestResetAndStepWin(t *testing.T) {
	e := New(scriptedQuest(t, twoStepQuest))
	defer e.Close()
	ctx := context.Background()

	obs, err := e.Reset(ctx)
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if obs.ChoiceCount() != 2 {
		t.Fatalf("expected 2 choices, got %d", obs.ChoiceCount())
	}
	if obs.ChoicesRendered[0] != "North" || obs.ChoiceJumpIDs[0] != 30 {
		t.Errorf("unexpected first choice: %q jump %d", obs.ChoicesRendered[0], obs.ChoiceJumpIDs[0])
	}
	if len(obs.ParamsState) != 1 || obs.ParamsState[0] != "Gold: 5" {
		t.Errorf("unexpected params: %v", obs.ParamsState)
	}

	// Action 1 maps to the first listed choice.
	next, reward, done, err := e.Step(ctx, 1)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if !done {
		t.Error("expected terminal state")
	}
	if reward != 1.0 {
		t.Errorf("expected reward 1.0 on win, got %g", reward)
	}
	if next.ChoiceCount() != 0 {
		t.Errorf("terminal observation should have no choices: %+v", next)
	}
}

func TestStepLossRewardZero(t *testing.T) {
	e := New(scriptedQuest(t, twoStepQuest))
	defer e.Close()
	ctx := context.Background()

	if _, err := e.Reset(ctx); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	_, reward, done, err := e.Step(ctx, 2)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if !done || reward != 0.0 {
		t.Errorf("expected terminal loss with reward 0, got done=%v reward=%g", done, reward)
	}
}

func TestInvalidActionDoesNotConsumeStep(t *testing.T) {
	e := New(scriptedQuest(t, twoStepQuest))
	defer e.Close()
	ctx := context.Background()

	if _, err := e.Reset(ctx); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	for _, action := range []int{0, 3, -1} {
		_, _, _, err := e.Step(ctx, action)
		var invalidErr *InvalidActionError
		if !errors.As(err, &invalidErr) {
			t.Fatalf("action %d: expected InvalidActionError, got %v", action, err)
		}
	}

	// The quest is still playable after rejected actions.
	_, reward, done, err := e.Step(ctx, 1)
	if err != nil {
		t.Fatalf("valid step after invalid actions failed: %v", err)
	}
	if !done || reward != 1.0 {
		t.Errorf("expected win after invalid actions, got done=%v reward=%g", done, reward)
	}
}

func TestStepBeforeReset(t *testing.T) {
	e := New(scriptedQuest(t, twoStepQuest))
	defer e.Close()

	if _, _, _, err := e.Step(context.Background(), 1); err == nil {
		t.Error("expected error stepping before reset")
	}
}

func TestRewardPolicy(t *testing.T) {
	cases := []struct {
		state  bridge.State
		reward float64
	}{
		{bridge.State{GameState: bridge.GameWin}, 1.0},
		{bridge.State{GameState: bridge.GameFail}, 0.0},
		{bridge.State{GameState: bridge.GameDead}, 0.0},
		{bridge.State{GameState: bridge.GameWin, Choices: []bridge.Choice{{JumpID: 1}}}, 0.0},
	}
	for _, tc := range cases {
		if got := Reward(&tc.state); got != tc.reward {
			t.Errorf("state %+v: expected reward %g, got %g", tc.state, tc.reward, got)
		}
	}
}
