// Operations on compute node names and lists of them.
//
// Schedulers report node lists both as explicit names and in compressed range
// syntax, and we need a deterministic ordering for names regardless of what
// container they arrived in.  The operations here are:
//
// - We can *split* a node list on commas, respecting brackets
// - We can *expand* a pattern with ranges into concrete node names
// - We can *compare* two node names in natural order, so that c2 sorts
//   before c10
//
// The grammar for patterns:
//
//   node-list       ::= pattern ("," pattern)*
//   pattern         ::= pattern-element ("." pattern-element)*
//   pattern-element ::= fragment+
//   fragment        ::= literal | range
//   literal         ::= <longest nonempty string of characters not containing "[" or "," or ".">
//   range           ::= "[" range-elt ("," range-elt)* "]"
//   range-elt       ::= number | number "-" number
//   number          ::= <nonempty string of 0..9, to be interpreted as decimal>
//
// In a range A-B, A must be no greater than B or the pattern is invalid.
// Leading zeroes are significant: c[001-003] expands to c001, c002, c003.

package nodenames

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// This takes a <node-list> according to the grammar above and returns the
// individual <pattern>s in the list.  It requires a bit of logic because a
// range fragment may contain a comma.

func SplitNodeList(s string) ([]string, error) {
	patterns := make([]string, 0)
	if s == "" {
		return patterns, nil
	}
	insideBrackets := false
	start := -1
	for ix, c := range s {
		if c == '[' {
			if insideBrackets {
				return nil, fmt.Errorf("Illegal node list: nested brackets")
			}
			insideBrackets = true
		} else if c == ']' {
			if !insideBrackets {
				return nil, fmt.Errorf("Illegal node list: unmatched end bracket")
			}
			insideBrackets = false
		} else if c == ',' && !insideBrackets {
			if start == -1 {
				return nil, fmt.Errorf("Illegal node list: Empty node name")
			}
			patterns = append(patterns, s[start:ix])
			start = -1
		} else if start == -1 {
			start = ix
		}
	}
	if insideBrackets {
		return nil, fmt.Errorf("Illegal node list: Missing end bracket")
	}
	if start == len(s) || start == -1 {
		return nil, fmt.Errorf("Illegal node list: Empty node name")
	}
	patterns = append(patterns, s[start:])
	return patterns, nil
}

// Split a <node-list> and expand every pattern in it, yielding concrete node
// names in the order they appear in the list.

func ExpandNodeList(s string) ([]string, error) {
	patterns, err := SplitNodeList(s)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(patterns))
	for _, p := range patterns {
		expansions, err := ExpandPattern(p)
		if err != nil {
			return nil, err
		}
		names = append(names, expansions...)
	}
	return names, nil
}

// This takes a single <pattern> from the grammar above and expands it.

func ExpandPattern(s string) ([]string, error) {
	before, after, hasTail := strings.Cut(s, ".")
	headExpansions, err := expandPatternElement(before)
	if err != nil {
		return nil, err
	}
	if !hasTail {
		return headExpansions, nil
	}

	tailExpansions, err := ExpandPattern(after)
	if err != nil {
		return nil, err
	}
	expansions := []string{}
	for _, h := range headExpansions {
		for _, t := range tailExpansions {
			expansions = append(expansions, h+"."+t)
		}
	}
	return expansions, nil
}

var noMoreFragments = errors.New("No more fragments")

func expandPatternElement(s string) ([]string, error) {
	r := strings.NewReader(s)
	fragments := make([]any, 0)
	for {
		fragment, err := parseFragment(r)
		if err != nil {
			if err == noMoreFragments {
				break
			}
			return nil, err
		}
		fragments = append(fragments, fragment)
	}
	if len(fragments) == 0 {
		return nil, errors.New("Empty element")
	}
	tails := []string{""}
	for i := len(fragments) - 1; i >= 0; i-- {
		switch f := fragments[i].(type) {
		case string:
			xs := make([]string, 0, len(tails))
			for _, t := range tails {
				xs = append(xs, f+t)
			}
			tails = xs
		case []string:
			xs := make([]string, 0, len(tails)*len(f))
			for _, t := range tails {
				for _, n := range f {
					xs = append(xs, n+t)
				}
			}
			tails = xs
		default:
			panic("???")
		}
	}
	return tails, nil
}

func parseFragment(r *strings.Reader) (any, error) {
	switch c := getc(r); c {
	case 0:
		return nil, noMoreFragments
	case '[':
		needOne := true
		nodes := []string{}
		for {
			if eatc(r, ']') {
				if needOne {
					return nil, errors.New("Expected number")
				}
				break
			}
			needOne = false
			n, width, err := readNumber(r)
			if err != nil {
				return nil, err
			}
			if eatc(r, '-') {
				m, _, err := readNumber(r)
				if err != nil {
					return nil, err
				}
				if n > m {
					return nil, errors.New("Bad range")
				}
				for n <= m {
					nodes = append(nodes, fmt.Sprintf("%0*d", width, n))
					n++
				}
			} else {
				nodes = append(nodes, fmt.Sprintf("%0*d", width, n))
			}
			if eatc(r, ',') {
				needOne = true
			} else if eatc(r, ']') {
				ungetc(r, ']')
			} else {
				return nil, errors.New("Unexpected character")
			}
		}
		return nodes, nil
	case ',':
		return nil, errors.New("Unexpected ','")
	case '.':
		return nil, errors.New("Unexpected '.'")
	default:
		literal := string(c)
		for {
			c := getc(r)
			if c == 0 || c == '[' || c == ',' || c == '.' {
				ungetc(r, c)
				break
			}
			literal = literal + string(c)
		}
		return literal, nil
	}
}

// Returns the value and the number of digits consumed, the latter so that
// callers can preserve zero padding.

func readNumber(r io.RuneScanner) (int, int, error) {
	cs := ""
	for {
		c := getc(r)
		if c < '0' || c > '9' {
			ungetc(r, c)
			break
		}
		cs = cs + string(c)
	}
	if cs == "" {
		return 0, 0, errors.New("Expected number")
	}
	n, err := strconv.Atoi(cs)
	return n, len(cs), err
}

func eatc(r io.RuneScanner, x rune) bool {
	c := getc(r)
	if c == x {
		return true
	}
	ungetc(r, c)
	return false
}

func getc(r io.RuneScanner) rune {
	c, _, err := r.ReadRune()
	if err == io.EOF {
		return 0
	}
	return c
}

func ungetc(r io.RuneScanner, c rune) {
	if c != 0 {
		r.UnreadRune()
	}
}

// Natural-order comparison of two node names: digit runs compare as numbers,
// everything else compares as text.  Returns <0, 0, >0 in the manner of
// strings.Compare.  Equal numbers with different padding ("c01" vs "c1")
// compare by the text form so the order is still total and deterministic.

func Compare(a, b string) int {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		if isDigit(ca) && isDigit(cb) {
			ia, na := i, 0
			for i < len(a) && isDigit(a[i]) {
				na = na*10 + int(a[i]-'0')
				i++
			}
			jb, nb := j, 0
			for j < len(b) && isDigit(b[j]) {
				nb = nb*10 + int(b[j]-'0')
				j++
			}
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
			if c := strings.Compare(a[ia:i], b[jb:j]); c != 0 {
				return c
			}
			continue
		}
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
		i++
		j++
	}
	switch {
	case len(a)-i < len(b)-j:
		return -1
	case len(a)-i > len(b)-j:
		return 1
	default:
		return 0
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
