package agent

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/richinex/questbench/env"
)

// Loop detection thresholds: a state revisited at least visitThreshold
// times with the same choice repeated streakThreshold times in a row
// triggers the loop-escape hint.
const (
	visitThreshold  = 3
	streakThreshold = 2
)

// loopEscapeHint is injected into the prompt when a loop is detected.
const loopEscapeHint = "You have repeated this state. Prefer a different action than your previous choice here."

// LoopTracker detects revisited states and repeated choices within one
// run. It is never shared across runs.
type LoopTracker struct {
	visits     map[string]int
	lastChoice map[string]int
	streak     map[string]int
}

// NewLoopTracker creates an empty tracker.
func NewLoopTracker() *LoopTracker {
	return &LoopTracker{
		visits:     make(map[string]int),
		lastChoice: make(map[string]int),
		streak:     make(map[string]int),
	}
}

// Fingerprint identifies a semantically-equivalent state: same
// location, same status panel, same outgoing jumps (order-insensitive).
func Fingerprint(obs env.Observation) string {
	ids := append([]int{}, obs.ChoiceJumpIDs...)
	sort.Ints(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprint(id))
	}

	var b strings.Builder
	b.WriteString(obs.LocationID)
	b.WriteByte(0x1f)
	b.WriteString(strings.Join(obs.ParamsState, "\x1e"))
	b.WriteByte(0x1f)
	b.WriteString(strings.Join(parts, ","))

	sum := blake3.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:16])
}

// Visit records arrival at a state and returns the visit count.
func (t *LoopTracker) Visit(fp string) int {
	t.visits[fp]++
	return t.visits[fp]
}

// Hint reports whether the loop-escape hint should fire for this state
// and, if so, which choice the model has been repeating.
func (t *LoopTracker) Hint(fp string) (lastChoice int, active bool) {
	if t.visits[fp] >= visitThreshold && t.streak[fp] >= streakThreshold {
		return t.lastChoice[fp], true
	}
	return 0, false
}

// Observe records the model's raw choice at a state. The streak tracks
// the model's picks, not the executed action, so an override does not
// reset it.
func (t *LoopTracker) Observe(fp string, choice int) {
	if t.lastChoice[fp] == choice {
		t.streak[fp]++
	} else {
		t.streak[fp] = 1
	}
	t.lastChoice[fp] = choice
}
