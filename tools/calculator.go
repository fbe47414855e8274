package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"chathub/chat"
)

// Calculator evaluates basic arithmetic expressions. Models routinely get
// multi-digit arithmetic wrong, so this gives them an exact answer to cite.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

func (c *Calculator) Definition() mcptypes.Tool {
	return mcptypes.Tool{
		Name: "calculator",
		Description: "Evaluate an arithmetic expression with +, -, *, / and parentheses. " +
			"Example: (3.5 + 2) * 4 / 2",
		InputSchema: objectSchema(map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "The arithmetic expression to evaluate",
			},
		}, "expression"),
	}
}

func (c *Calculator) Execute(_ context.Context, args map[string]any) chat.ToolResult {
	expr, err := stringArg(args, "expression")
	if err != nil {
		return Failure("calculator: %v", err)
	}

	p := &exprParser{input: expr}
	result, err := p.parseExpr()
	if err != nil {
		return Failure("calculator: %v", err)
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return Failure("calculator: unexpected character %q at position %d", p.input[p.pos], p.pos)
	}

	return Success(strconv.FormatFloat(result, 'f', -1, 64))
}

// exprParser is a recursive descent parser over a flat byte position.
// Grammar:
//
//	expr   = term { ("+" | "-") term }
//	term   = factor { ("*" | "/") factor }
//	factor = number | "(" expr ")" | "-" factor
type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		if p.pos >= len(p.input) {
			return left, nil
		}
		op := p.input[p.pos]
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		if p.pos >= len(p.input) {
			return left, nil
		}
		op := p.input[p.pos]
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
		} else {
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		}
	}
}

func (p *exprParser) parseFactor() (float64, error) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, fmt.Errorf("unexpected end of expression")
	}

	switch p.input[p.pos] {
	case '(':
		p.pos++
		val, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return val, nil
	case '-':
		p.pos++
		val, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		return -val, nil
	}

	start := p.pos
	for p.pos < len(p.input) && (unicode.IsDigit(rune(p.input[p.pos])) || p.input[p.pos] == '.') {
		p.pos++
	}
	if start == p.pos {
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	num := strings.TrimSpace(p.input[start:p.pos])
	val, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", num)
	}
	return val, nil
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}
