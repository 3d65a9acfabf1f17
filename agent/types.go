package agent

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	jsonutil "github.com/richinex/questbench/internal/json"
)

// Decision is the structured outcome of one agent choice. It is
// persisted on the step record verbatim, including error and override
// markers, so a run trace never needs the raw LLM transcript to be
// interpretable.
type Decision struct {
	Analysis  string `json:"analysis,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
	Result    int    `json:"result"`
	Override  string `json:"override,omitempty"`
	Error     string `json:"error,omitempty"`
	Attempts  int    `json:"attempts,omitempty"`
	// ParseErrors records per-attempt parse failures that were
	// recovered by a retry, so the trace shows what happened even when
	// the step ultimately succeeded.
	ParseErrors []string `json:"parse_errors,omitempty"`
}

// JSON renders the decision for persistence.
func (d Decision) JSON() string {
	b, err := json.Marshal(d)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// flexInt tolerates models that quote the result number.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	s = strings.Trim(s, `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("result is not an integer: %s", s)
	}
	*f = flexInt(v)
	return nil
}

// decisionWire is the reply schema the model is asked to produce.
type decisionWire struct {
	Analysis  string  `json:"analysis"`
	Reasoning string  `json:"reasoning"`
	Result    flexInt `json:"result"`
}

// parseDecision turns raw model output into a Decision. The ladder:
// strict/fenced/embedded JSON first, then per-field recovery for
// truncated objects. A recovered analysis without reasoning is
// promoted so the step record always carries a readable rationale.
func parseDecision(content string) (Decision, error) {
	wire, err := jsonutil.ExtractJSONFromResponse[decisionWire](content)
	if err == nil {
		d := Decision{
			Analysis:  wire.Analysis,
			Reasoning: wire.Reasoning,
			Result:    int(wire.Result),
		}
		promoteAnalysis(&d)
		if d.Result == 0 {
			return d, fmt.Errorf("result field missing")
		}
		return d, nil
	}

	var d Decision
	recovered := false
	if v, ok := jsonutil.RecoverInt(content, "result"); ok {
		d.Result = v
		recovered = true
	}
	if s, ok := jsonutil.RecoverString(content, "reasoning"); ok {
		d.Reasoning = s
		recovered = true
	}
	if s, ok := jsonutil.RecoverString(content, "analysis"); ok {
		d.Analysis = s
		recovered = true
	}
	promoteAnalysis(&d)

	if !recovered {
		return d, fmt.Errorf("unparsable reply: %w", err)
	}
	if d.Result == 0 {
		return d, fmt.Errorf("result field missing")
	}
	return d, nil
}

// mergePartial keeps the best partial rationale seen across attempts,
// so a failed first attempt's reasoning survives into the final record.
func mergePartial(best *Decision, d Decision) {
	if best.Reasoning == "" && d.Reasoning != "" {
		best.Reasoning = d.Reasoning
	}
	if best.Analysis == "" && d.Analysis != "" {
		best.Analysis = d.Analysis
	}
}

func promoteAnalysis(d *Decision) {
	if d.Reasoning == "" && d.Analysis != "" {
		d.Reasoning = d.Analysis
	}
}
