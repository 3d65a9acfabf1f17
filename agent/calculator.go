package agent

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// The calculator tool evaluates plain arithmetic the model asks for in
// its reasoning. Safe by construction: a hand-rolled recursive-descent
// parser over numbers, + - * / ** and parentheses. Anything else is
// rejected with an explicit error.

var calcInvocation = regexp.MustCompile(`(?i)calculate:\s*([0-9+\-*/().eE\s]+)`)

// extractCalculation pulls the expression of a "calculate: <expr>"
// line out of the model's reasoning, if present.
func extractCalculation(reasoning string) (string, bool) {
	m := calcInvocation.FindStringSubmatch(reasoning)
	if m == nil {
		return "", false
	}
	expr := strings.TrimSpace(m[1])
	if expr == "" {
		return "", false
	}
	return expr, true
}

// calculatorNote evaluates the expression and formats the memory note.
func calculatorNote(expr string) string {
	v, err := EvalArithmetic(expr)
	if err != nil {
		return fmt.Sprintf("Calculator error: %v", err)
	}
	if v == float64(int64(v)) {
		return fmt.Sprintf("Calculator result: %d", int64(v))
	}
	return fmt.Sprintf("Calculator result: %g", v)
}

// EvalArithmetic evaluates an arithmetic expression over int and float
// literals with + - * / ** and parentheses.
func EvalArithmetic(expr string) (float64, error) {
	p := &calcParser{input: []rune(expr)}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected token %q", string(p.input[p.pos]))
	}
	return v, nil
}

type calcParser struct {
	input []rune
	pos   int
}

func (p *calcParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *calcParser) peek() rune {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

// parseExpr handles + and -.
func (p *calcParser) parseExpr() (float64, error) {
	v, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			v += rhs
		case '-':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			v -= rhs
		default:
			return v, nil
		}
	}
}

// parseTerm handles * and /, leaving ** to parsePower.
func (p *calcParser) parseTerm() (float64, error) {
	v, err := p.parsePower()
	if err != nil {
		return 0, err
	}
	for {
		c := p.peek()
		if c == '*' && !(p.pos+1 < len(p.input) && p.input[p.pos+1] == '*') {
			p.pos++
			rhs, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			v *= rhs
		} else if c == '/' {
			p.pos++
			rhs, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if rhs == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			v /= rhs
		} else {
			return v, nil
		}
	}
}

// parsePower handles ** (right-associative).
func (p *calcParser) parsePower() (float64, error) {
	base, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	if p.peek() == '*' && p.pos+1 < len(p.input) && p.input[p.pos+1] == '*' {
		p.pos += 2
		exp, err := p.parsePower()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *calcParser) parseUnary() (float64, error) {
	if p.peek() == '-' {
		p.pos++
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -v, nil
	}
	return p.parsePrimary()
}

func (p *calcParser) parsePrimary() (float64, error) {
	c := p.peek()
	if c == '(' {
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	}
	if c >= '0' && c <= '9' || c == '.' {
		return p.parseNumber()
	}
	if c == 0 {
		return 0, fmt.Errorf("unexpected end of expression")
	}
	return 0, fmt.Errorf("unexpected token %q", string(c))
}

func (p *calcParser) parseNumber() (float64, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c >= '0' && c <= '9' || c == '.' {
			p.pos++
			continue
		}
		break
	}
	text := string(p.input[start:p.pos])
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", text)
	}
	return v, nil
}
