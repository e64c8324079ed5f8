// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"fmt"
	"strconv"
	"strings"
)

// evaluate parses and computes a basic arithmetic expression. The
// character set is restricted before parsing; anything outside it is
// rejected rather than interpreted.
func evaluate(expression string) (float64, error) {
	for _, r := range expression {
		if !strings.ContainsRune("0123456789+-*/.() ", r) {
			return 0, fmt.Errorf("invalid character %q in expression", r)
		}
	}
	tokens, err := tokenizeExpr(expression)
	if err != nil {
		return 0, err
	}
	if len(tokens) == 0 {
		return 0, fmt.Errorf("empty expression")
	}
	rpn, err := toRPN(tokens)
	if err != nil {
		return 0, err
	}
	return evalRPN(rpn)
}

type exprToken struct {
	op    byte    // 0 for numbers
	value float64 // set when op == 0
}

func tokenizeExpr(expression string) ([]exprToken, error) {
	var tokens []exprToken
	i := 0
	for i < len(expression) {
		c := expression[i]
		switch {
		case c == ' ':
			i++
		case c >= '0' && c <= '9' || c == '.':
			j := i
			for j < len(expression) && (expression[j] >= '0' && expression[j] <= '9' || expression[j] == '.') {
				j++
			}
			v, err := strconv.ParseFloat(expression[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("bad number %q", expression[i:j])
			}
			tokens = append(tokens, exprToken{value: v})
			i = j
		case c == '-' && unaryPosition(tokens):
			// Sign, not subtraction. 'u' is a one-operand negation with
			// the highest precedence.
			tokens = append(tokens, exprToken{op: 'u'})
			i++
		case strings.IndexByte("+-*/()", c) >= 0:
			tokens = append(tokens, exprToken{op: c})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q", c)
		}
	}
	return tokens, nil
}

// unaryPosition reports whether a '-' at the current position is a sign
// rather than a subtraction.
func unaryPosition(tokens []exprToken) bool {
	if len(tokens) == 0 {
		return true
	}
	last := tokens[len(tokens)-1]
	return last.op != 0 && last.op != ')'
}

func precedence(op byte) int {
	switch op {
	case '+', '-':
		return 1
	case '*', '/':
		return 2
	case 'u':
		return 3
	}
	return 0
}

func toRPN(tokens []exprToken) ([]exprToken, error) {
	var output, stack []exprToken
	for _, t := range tokens {
		switch {
		case t.op == 0:
			output = append(output, t)
		case t.op == '(':
			stack = append(stack, t)
		case t.op == ')':
			matched := false
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if top.op == '(' {
					matched = true
					break
				}
				output = append(output, top)
			}
			if !matched {
				return nil, fmt.Errorf("unbalanced parentheses")
			}
		default:
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				// 'u' is right-associative: equal precedence stays on
				// the stack.
				if top.op == '(' || precedence(top.op) < precedence(t.op) ||
					(t.op == 'u' && precedence(top.op) == precedence(t.op)) {
					break
				}
				output = append(output, top)
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, t)
		}
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.op == '(' {
			return nil, fmt.Errorf("unbalanced parentheses")
		}
		output = append(output, top)
	}
	return output, nil
}

func evalRPN(rpn []exprToken) (float64, error) {
	var stack []float64
	for _, t := range rpn {
		if t.op == 0 {
			stack = append(stack, t.value)
			continue
		}
		if t.op == 'u' {
			if len(stack) < 1 {
				return 0, fmt.Errorf("malformed expression")
			}
			stack[len(stack)-1] = -stack[len(stack)-1]
			continue
		}
		if len(stack) < 2 {
			return 0, fmt.Errorf("malformed expression")
		}
		b := stack[len(stack)-1]
		a := stack[len(stack)-2]
		stack = stack[:len(stack)-2]
		var v float64
		switch t.op {
		case '+':
			v = a + b
		case '-':
			v = a - b
		case '*':
			v = a * b
		case '/':
			if b == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			v = a / b
		}
		stack = append(stack, v)
	}
	if len(stack) != 1 {
		return 0, fmt.Errorf("malformed expression")
	}
	return stack[0], nil
}
