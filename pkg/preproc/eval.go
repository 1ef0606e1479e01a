package preproc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yaklabco/pawnls/pkg/lexer"
)

var (
	// ErrMalformedCondition is returned for #if expressions that do not parse.
	ErrMalformedCondition = errors.New("malformed condition")

	// ErrUnknownIdentifier is returned when an #if expression names something
	// that is not a macro.
	ErrUnknownIdentifier = errors.New("unknown identifier")

	// ErrDivisionByZero is returned for x / 0 and x % 0.
	ErrDivisionByZero = errors.New("division by zero")
)

// binding powers for #if operators.
var infixPower = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6,
	"<": 7, "<=": 7, ">": 7, ">=": 7,
	"<<": 8, ">>": 8, ">>>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

const ternaryPower = 0

// evaluator computes the value of a fully expanded #if expression.
type evaluator struct {
	tokens []lexer.Token
	pos    int
}

func evaluate(tokens []lexer.Token) (int64, error) {
	ev := &evaluator{tokens: tokens}
	if len(tokens) == 0 {
		return 0, fmt.Errorf("%w: empty expression", ErrMalformedCondition)
	}

	value, err := ev.expr(-1)
	if err != nil {
		return 0, err
	}
	if ev.pos < len(ev.tokens) {
		return 0, fmt.Errorf("%w: unexpected %q", ErrMalformedCondition, ev.tokens[ev.pos].Text)
	}
	return value, nil
}

func (ev *evaluator) peek() *lexer.Token {
	if ev.pos < len(ev.tokens) {
		return &ev.tokens[ev.pos]
	}
	return nil
}

func (ev *evaluator) expr(minPower int) (int64, error) {
	lhs, err := ev.unary()
	if err != nil {
		return 0, err
	}

	for {
		tok := ev.peek()
		if tok == nil {
			return lhs, nil
		}

		if tok.Kind == lexer.KindQuestion {
			if ternaryPower <= minPower {
				return lhs, nil
			}
			ev.pos++
			then, err := ev.expr(-1)
			if err != nil {
				return 0, err
			}
			if next := ev.peek(); next == nil || next.Kind != lexer.KindColon {
				return 0, fmt.Errorf("%w: expected ':'", ErrMalformedCondition)
			}
			ev.pos++
			otherwise, err := ev.expr(ternaryPower - 1)
			if err != nil {
				return 0, err
			}
			if lhs != 0 {
				lhs = then
			} else {
				lhs = otherwise
			}
			continue
		}

		power, ok := infixPower[tok.Text]
		if !ok || tok.Kind != lexer.KindOperator || power <= minPower {
			return lhs, nil
		}
		ev.pos++

		rhs, err := ev.expr(power)
		if err != nil {
			return 0, err
		}
		lhs, err = applyBinary(tok.Text, lhs, rhs)
		if err != nil {
			return 0, err
		}
	}
}

func (ev *evaluator) unary() (int64, error) {
	tok := ev.peek()
	if tok == nil {
		return 0, fmt.Errorf("%w: unexpected end of expression", ErrMalformedCondition)
	}
	ev.pos++

	switch {
	case tok.Kind == lexer.KindOperator && (tok.Text == "!" || tok.Text == "~" || tok.Text == "-" || tok.Text == "+"):
		operand, err := ev.unary()
		if err != nil {
			return 0, err
		}
		switch tok.Text {
		case "!":
			return boolValue(operand == 0), nil
		case "~":
			return ^operand, nil
		case "-":
			return -operand, nil
		}
		return operand, nil
	case tok.Kind == lexer.KindLParen:
		value, err := ev.expr(-1)
		if err != nil {
			return 0, err
		}
		if next := ev.peek(); next == nil || next.Kind != lexer.KindRParen {
			return 0, fmt.Errorf("%w: expected ')'", ErrMalformedCondition)
		}
		ev.pos++
		return value, nil
	case tok.Kind == lexer.KindInt:
		return parseInt(tok.Text)
	case tok.Kind == lexer.KindFloat:
		f, err := strconv.ParseFloat(strings.ReplaceAll(tok.Text, "_", ""), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: bad number %q", ErrMalformedCondition, tok.Text)
		}
		return int64(f), nil
	case tok.Kind == lexer.KindChar:
		return charValue(tok.Text), nil
	case tok.Text == "true":
		return 1, nil
	case tok.Text == "false":
		return 0, nil
	case tok.Kind == lexer.KindIdent || tok.Kind == lexer.KindKeyword:
		return 0, fmt.Errorf("%w: %s", ErrUnknownIdentifier, tok.Text)
	}

	return 0, fmt.Errorf("%w: unexpected %q", ErrMalformedCondition, tok.Text)
}

func applyBinary(op string, lhs, rhs int64) (int64, error) {
	switch op {
	case "||":
		return boolValue(lhs != 0 || rhs != 0), nil
	case "&&":
		return boolValue(lhs != 0 && rhs != 0), nil
	case "|":
		return lhs | rhs, nil
	case "^":
		return lhs ^ rhs, nil
	case "&":
		return lhs & rhs, nil
	case "==":
		return boolValue(lhs == rhs), nil
	case "!=":
		return boolValue(lhs != rhs), nil
	case "<":
		return boolValue(lhs < rhs), nil
	case "<=":
		return boolValue(lhs <= rhs), nil
	case ">":
		return boolValue(lhs > rhs), nil
	case ">=":
		return boolValue(lhs >= rhs), nil
	case "<<":
		return lhs << (uint64(rhs) & 63), nil
	case ">>":
		return lhs >> (uint64(rhs) & 63), nil
	case ">>>":
		return int64(uint32(lhs) >> (uint64(rhs) & 31)), nil
	case "+":
		return lhs + rhs, nil
	case "-":
		return lhs - rhs, nil
	case "*":
		return lhs * rhs, nil
	case "/", "%":
		if rhs == 0 {
			return 0, ErrDivisionByZero
		}
		if op == "/" {
			return lhs / rhs, nil
		}
		return lhs % rhs, nil
	}
	return 0, fmt.Errorf("%w: operator %q", ErrMalformedCondition, op)
}

func parseInt(text string) (int64, error) {
	clean := strings.ReplaceAll(text, "_", "")
	base := 10
	if len(clean) > 2 && clean[0] == '0' {
		switch clean[1] {
		case 'x', 'X':
			base, clean = 16, clean[2:]
		case 'b', 'B':
			base, clean = 2, clean[2:]
		case 'o', 'O':
			base, clean = 8, clean[2:]
		}
	}
	value, err := strconv.ParseInt(clean, base, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad number %q", ErrMalformedCondition, text)
	}
	return value, nil
}

func charValue(text string) int64 {
	inner := strings.TrimSuffix(strings.TrimPrefix(text, "'"), "'")
	if inner == "" {
		return 0
	}
	if inner[0] != '\\' || len(inner) < 2 {
		return int64([]rune(inner)[0])
	}
	switch inner[1] {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case '0':
		return 0
	default:
		return int64(inner[1])
	}
}

func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
