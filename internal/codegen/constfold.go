package codegen

import (
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

type litKind int

// maxSafeInteger bounds integers that float64 represents exactly; beyond it
// int64 evaluation no longer matches TypeScript numbers.
const maxSafeInteger float64 = 1<<53 - 1

const (
	litInvalid litKind = iota
	litBool
	litNumber
)

// constantCondition reports whether a condition is a boolean expression over
// literals only, and if so its value. Only the subset where expression and
// TypeScript semantics agree is folded: booleans, numbers, and the
// comparison, logical and arithmetic operators. Anything else is left for
// runtime evaluation.
func constantCondition(src string) (value, ok bool) {
	tree, err := parser.Parse(src)
	if err != nil {
		return false, false
	}
	if kindOf(tree.Node) != litBool {
		return false, false
	}
	out, err := expr.Eval(src, nil)
	if err != nil {
		return false, false
	}
	b, isBool := out.(bool)
	return b, isBool
}

func kindOf(n ast.Node) litKind {
	switch node := n.(type) {
	case *ast.BoolNode:
		return litBool
	case *ast.IntegerNode:
		if math.Abs(float64(node.Value)) > maxSafeInteger {
			return litInvalid
		}
		return litNumber
	case *ast.FloatNode:
		return litNumber
	case *ast.UnaryNode:
		inner := kindOf(node.Node)
		switch {
		case node.Operator == "!" && inner == litBool:
			return litBool
		case (node.Operator == "-" || node.Operator == "+") && inner == litNumber:
			return litNumber
		}
	case *ast.BinaryNode:
		left, right := kindOf(node.Left), kindOf(node.Right)
		if left == litInvalid || left != right {
			return litInvalid
		}
		switch node.Operator {
		case "==", "!=":
			return litBool
		case "<", ">", "<=", ">=":
			if left == litNumber {
				return litBool
			}
		case "&&", "||":
			if left == litBool {
				return litBool
			}
		case "+", "-", "*", "/", "%":
			if left != litNumber {
				break
			}
			if bound, isInt := intBound(node); isInt && bound > maxSafeInteger {
				return litInvalid
			}
			return litNumber
		}
	}
	return litInvalid
}

// intBound bounds the magnitude of integer arithmetic over literals. isInt is
// false once a float enters, since float results already match TypeScript.
func intBound(n ast.Node) (bound float64, isInt bool) {
	switch node := n.(type) {
	case *ast.IntegerNode:
		return math.Abs(float64(node.Value)), true
	case *ast.UnaryNode:
		return intBound(node.Node)
	case *ast.BinaryNode:
		l, lok := intBound(node.Left)
		r, rok := intBound(node.Right)
		if !lok || !rok {
			return 0, false
		}
		switch node.Operator {
		case "+", "-":
			return l + r, true
		case "*":
			return l * r, true
		case "%":
			return l, true
		}
	}
	return 0, false
}
