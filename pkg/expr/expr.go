// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package expr evaluates arithmetic expressions over a fixed variable
// mapping. The grammar supports + - * / % ** and parentheses, nothing else:
// no function calls, no attribute access, no name lookups beyond the
// supplied variables. Expressions arrive from LLM output, so the evaluator
// is a dedicated recursive-descent parser rather than a restricted
// general-purpose evaluator.
package expr

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ErrDivisionByZero is returned when the right operand of / or % is zero.
var ErrDivisionByZero = errors.New("division by zero")

// EvalError reports any evaluation failure other than division by zero:
// malformed syntax, unknown identifiers, domain errors.
type EvalError struct {
	Detail string
}

func (e *EvalError) Error() string { return e.Detail }

func evalErrorf(format string, args ...any) error {
	return &EvalError{Detail: fmt.Sprintf(format, args...)}
}

// Evaluate parses and evaluates an expression against the variable mapping.
// Same expression and mapping always produce the same result; the evaluator
// has no side effects.
func Evaluate(expression string, vars map[string]float64) (float64, error) {
	toks, err := lex(expression)
	if err != nil {
		return 0, err
	}
	p := &parser{tokens: toks, vars: vars}
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.tokens) {
		return 0, evalErrorf("unexpected token %q", p.tokens[p.pos].text)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, evalErrorf("result is not a finite number")
	}
	return v, nil
}

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

func lex(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		c := rune(input[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "("})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")"})
			i++
		case c == '*':
			if i+1 < len(input) && input[i+1] == '*' {
				toks = append(toks, token{kind: tokOp, text: "**"})
				i += 2
			} else {
				toks = append(toks, token{kind: tokOp, text: "*"})
				i++
			}
		case strings.ContainsRune("+-/%", c):
			toks = append(toks, token{kind: tokOp, text: string(c)})
			i++
		case unicode.IsDigit(c) || c == '.':
			j := i
			for j < len(input) && (unicode.IsDigit(rune(input[j])) || input[j] == '.') {
				j++
			}
			// Exponent suffix (1e6, 2.5e-3).
			if j < len(input) && (input[j] == 'e' || input[j] == 'E') {
				k := j + 1
				if k < len(input) && (input[k] == '+' || input[k] == '-') {
					k++
				}
				if k < len(input) && unicode.IsDigit(rune(input[k])) {
					for k < len(input) && unicode.IsDigit(rune(input[k])) {
						k++
					}
					j = k
				}
			}
			text := input[i:j]
			num, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, evalErrorf("invalid number %q", text)
			}
			toks = append(toks, token{kind: tokNumber, text: text, num: num})
			i = j
		case unicode.IsLetter(c) || c == '_':
			j := i
			for j < len(input) && (unicode.IsLetter(rune(input[j])) || unicode.IsDigit(rune(input[j])) || input[j] == '_') {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: input[i:j]})
			i = j
		default:
			return nil, evalErrorf("unexpected character %q", string(c))
		}
	}
	if len(toks) == 0 {
		return nil, evalErrorf("empty expression")
	}
	return toks, nil
}

type parser struct {
	tokens []token
	pos    int
	vars   map[string]float64
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) acceptOp(ops ...string) (string, bool) {
	t, ok := p.peek()
	if !ok || t.kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if t.text == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

// expr := term (('+'|'-') term)*
func (p *parser) expr() (float64, error) {
	left, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.acceptOp("+", "-")
		if !ok {
			return left, nil
		}
		right, err := p.term()
		if err != nil {
			return 0, err
		}
		if op == "+" {
			left += right
		} else {
			left -= right
		}
	}
}

// term := unary (('*'|'/'|'%') unary)*
func (p *parser) term() (float64, error) {
	left, err := p.unary()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.acceptOp("*", "/", "%")
		if !ok {
			return left, nil
		}
		right, err := p.unary()
		if err != nil {
			return 0, err
		}
		switch op {
		case "*":
			left *= right
		case "/":
			if right == 0 {
				return 0, ErrDivisionByZero
			}
			left /= right
		case "%":
			if right == 0 {
				return 0, ErrDivisionByZero
			}
			left = flooredMod(left, right)
		}
	}
}

// flooredMod is the floored modulo: the result takes the sign of the
// divisor, so -7 % 3 is 2 and 7 % -3 is -2.
func flooredMod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}

// unary := ('-'|'+') unary | power
// Exponentiation binds tighter than unary minus on its left operand,
// so -2**2 evaluates to -4.
func (p *parser) unary() (float64, error) {
	if op, ok := p.acceptOp("-", "+"); ok {
		v, err := p.unary()
		if err != nil {
			return 0, err
		}
		if op == "-" {
			return -v, nil
		}
		return v, nil
	}
	return p.power()
}

// power := atom ('**' unary)?   (right-associative)
func (p *parser) power() (float64, error) {
	base, err := p.atom()
	if err != nil {
		return 0, err
	}
	if _, ok := p.acceptOp("**"); ok {
		exp, err := p.unary()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *parser) atom() (float64, error) {
	t, ok := p.peek()
	if !ok {
		return 0, evalErrorf("unexpected end of expression")
	}
	switch t.kind {
	case tokNumber:
		p.pos++
		return t.num, nil
	case tokIdent:
		p.pos++
		v, exists := p.vars[t.text]
		if !exists {
			return 0, evalErrorf("unknown identifier %q", t.text)
		}
		return v, nil
	case tokLParen:
		p.pos++
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		t, ok = p.peek()
		if !ok || t.kind != tokRParen {
			return 0, evalErrorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	default:
		return 0, evalErrorf("unexpected token %q", t.text)
	}
}
