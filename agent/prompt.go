package agent

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/richinex/questbench/env"
)

// DefaultSystemTemplate is the system prompt used when the agent
// config does not supply one.
const DefaultSystemTemplate = `You are playing a branching text quest. At each step you see the current scene, an optional status panel, and a numbered list of actions. Pick exactly one action.

Reply with a single JSON object of the form:
{"analysis": "<what is going on>", "reasoning": "<why this action>", "result": <action number>}

"result" must be the number of one listed action. Reply with the JSON object only.`

// DefaultActionTemplate renders one observation into the user prompt.
const DefaultActionTemplate = `{{if .MemoryBlock}}Previous steps:
{{.MemoryBlock}}

{{end}}{{if .ParamsState}}Status:
{{range .ParamsState}}{{.}}
{{end}}
{{end}}{{.Observation}}

Available actions:
{{range $i, $c := .Choices}}{{add1 $i}}. {{$c}}
{{end}}{{if .LoopHint}}
{{.LoopHint}}
{{end}}{{if .CalculatorInvited}}
If arithmetic would help, include a line "calculate: <expression>" in your reasoning.
{{end}}`

// schemaReminder is sent on a parse-failure retry.
const schemaReminder = `Your previous reply could not be parsed. Reply again with ONLY a JSON object: {"analysis": "...", "reasoning": "...", "result": <action number>} where result is the number of one listed action.`

// promptVars are the variables an action template may reference.
type promptVars struct {
	Observation       string
	Choices           []string
	ParamsState       []string
	MemoryBlock       string
	LoopHint          string
	CalculatorInvited bool
}

var templateFuncs = template.FuncMap{
	"add1": func(i int) int { return i + 1 },
}

func parseActionTemplate(text string) (*template.Template, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultActionTemplate
	}
	tmpl, err := template.New("action").Funcs(templateFuncs).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid action template: %w", err)
	}
	return tmpl, nil
}

func renderPrompt(tmpl *template.Template, obs env.Observation, memoryBlock, loopHint string, calculator bool) (string, error) {
	var b strings.Builder
	err := tmpl.Execute(&b, promptVars{
		Observation:       obs.Text,
		Choices:           obs.ChoicesRendered,
		ParamsState:       obs.ParamsState,
		MemoryBlock:       memoryBlock,
		LoopHint:          loopHint,
		CalculatorInvited: calculator,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render action prompt: %w", err)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
