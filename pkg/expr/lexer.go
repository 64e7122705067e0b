package expr

import (
	"strconv"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokFloorDiv
	tokPercent
	tokPower
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
)

var tokenText = map[tokenKind]string{
	tokEOF:      "end of input",
	tokPlus:     "'+'",
	tokMinus:    "'-'",
	tokStar:     "'*'",
	tokSlash:    "'/'",
	tokFloorDiv: "'//'",
	tokPercent:  "'%'",
	tokPower:    "'^'",
	tokLParen:   "'('",
	tokRParen:   "')'",
	tokLBracket: "'['",
	tokRBracket: "']'",
	tokComma:    "','",
}

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

func (t token) describe() string {
	switch t.kind {
	case tokNumber:
		return "number " + t.text
	case tokIdent:
		return "identifier " + strconv.Quote(t.text)
	}
	return tokenText[t.kind]
}

// tokenize splits src into tokens, ending with tokEOF.
func tokenize(src string) ([]token, error) {
	var toks []token
	rs := []rune(src)
	// byte offsets keep positions meaningful for ASCII formulas, which is all
	// the grammar accepts outside of identifiers
	offset := func(i int) int { return len(string(rs[:i])) }

	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsDigit(r) || (r == '.' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			start := i
			for i < len(rs) && unicode.IsDigit(rs[i]) {
				i++
			}
			if i < len(rs) && rs[i] == '.' {
				i++
				for i < len(rs) && unicode.IsDigit(rs[i]) {
					i++
				}
			}
			text := string(rs[start:i])
			n, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, syntaxErrorf(offset(start), "invalid number %q", text)
			}
			toks = append(toks, token{kind: tokNumber, text: text, num: n, pos: offset(start)})
		case r == '_' || unicode.IsLetter(r):
			start := i
			for i < len(rs) && (rs[i] == '_' || unicode.IsLetter(rs[i]) || unicode.IsDigit(rs[i])) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: string(rs[start:i]), pos: offset(start)})
		default:
			kind, width := operator(rs, i)
			if width == 0 {
				return nil, syntaxErrorf(offset(i), "unexpected character %q", r)
			}
			toks = append(toks, token{kind: kind, text: string(rs[i : i+width]), pos: offset(i)})
			i += width
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(src)}), nil
}

func operator(rs []rune, i int) (tokenKind, int) {
	next := rune(0)
	if i+1 < len(rs) {
		next = rs[i+1]
	}
	switch rs[i] {
	case '+':
		return tokPlus, 1
	case '-':
		return tokMinus, 1
	case '*':
		if next == '*' {
			return tokPower, 2
		}
		return tokStar, 1
	case '/':
		if next == '/' {
			return tokFloorDiv, 2
		}
		return tokSlash, 1
	case '%':
		return tokPercent, 1
	case '^':
		return tokPower, 1
	case '(':
		return tokLParen, 1
	case ')':
		return tokRParen, 1
	case '[':
		return tokLBracket, 1
	case ']':
		return tokRBracket, 1
	case ',':
		return tokComma, 1
	}
	return tokEOF, 0
}
