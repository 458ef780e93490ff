package regression

import (
	"fmt"
	"strconv"
	"strings"
)

// PrettyPrint returns the symbolic form of the expression encoded by x's
// integer suffix, with its embedded constants substituted from x's real
// prefix.
func (p *Problem) PrettyPrint(x []float64) ([]string, error) {
	consts, chromosome, err := p.splitDecisionVector(x)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.expr.Set(chromosome); err != nil {
		return nil, err
	}
	names := make([]string, p.nIn+p.nEph)
	for i := 0; i < p.nIn; i++ {
		names[i] = fmt.Sprintf("x%d", i)
	}
	for i := 0; i < p.nEph; i++ {
		names[p.nIn+i] = strconv.FormatFloat(consts[i], 'g', -1, 64)
	}
	return p.expr.Render(names)
}

// Prettier returns PrettyPrint's output after a textual simplification
// pass that drops trailing additive/multiplicative identities and collapses
// a trailing multiplication by zero (see simplify). It does not fold
// arithmetic between numeric literals. Purely cosmetic; it never touches
// numeric evaluation.
func (p *Problem) Prettier(x []float64) ([]string, error) {
	raw, err := p.PrettyPrint(x)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(raw))
	for i, expr := range raw {
		out[i] = simplify(expr)
	}
	return out, nil
}

// simplify repeatedly strips additive-identity and multiplicative-identity
// terms from a rendered expression string until a pass makes no change.
// This is a shallow textual pass, not a symbolic-algebra engine: it
// recognizes only the literal patterns "(A+0)", "(A*1)", "(A*0)" and
// "(A-0)", with the identity or zero as the last operand; the mirrored
// forms "(0+A)", "(1*A)" and "(0*A)" are left as they are.
func simplify(expr string) string {
	for {
		next := simplifyPass(expr)
		if next == expr {
			return expr
		}
		expr = next
	}
}

func simplifyPass(expr string) string {
	replacements := []struct {
		suffix string
		apply  func(inner string) (string, bool)
	}{
		{"+0)", stripAdditiveIdentity},
		{"*1)", stripMultiplicativeIdentityRight},
		{"*0)", stripMultiplicativeZero},
		{"-0)", stripTrailingSubtractZero},
	}
	for _, r := range replacements {
		if idx := strings.Index(expr, r.suffix); idx >= 0 {
			if simplified, ok := r.apply(expr); ok {
				return simplified
			}
		}
	}
	return expr
}

// findMatchingParenBefore locates the opening paren matching a close paren
// at position close, scanning backward.
func findMatchingParenBefore(s string, closeIdx int) int {
	depth := 0
	for i := closeIdx; i >= 0; i-- {
		switch s[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func stripAdditiveIdentity(expr string) (string, bool) {
	closeIdx := strings.Index(expr, "+0)")
	if closeIdx < 0 {
		return expr, false
	}
	open := findMatchingParenBefore(expr, closeIdx+2)
	if open < 0 {
		return expr, false
	}
	inner := expr[open+1 : closeIdx]
	return expr[:open] + inner + expr[closeIdx+3:], true
}

func stripMultiplicativeIdentityRight(expr string) (string, bool) {
	closeIdx := strings.Index(expr, "*1)")
	if closeIdx < 0 {
		return expr, false
	}
	open := findMatchingParenBefore(expr, closeIdx+2)
	if open < 0 {
		return expr, false
	}
	inner := expr[open+1 : closeIdx]
	return expr[:open] + inner + expr[closeIdx+3:], true
}

func stripMultiplicativeZero(expr string) (string, bool) {
	closeIdx := strings.Index(expr, "*0)")
	if closeIdx < 0 {
		return expr, false
	}
	open := findMatchingParenBefore(expr, closeIdx+2)
	if open < 0 {
		return expr, false
	}
	return expr[:open] + "0" + expr[closeIdx+3:], true
}

func stripTrailingSubtractZero(expr string) (string, bool) {
	closeIdx := strings.Index(expr, "-0)")
	if closeIdx < 0 {
		return expr, false
	}
	open := findMatchingParenBefore(expr, closeIdx+2)
	if open < 0 {
		return expr, false
	}
	inner := expr[open+1 : closeIdx]
	return expr[:open] + inner + expr[closeIdx+3:], true
}
