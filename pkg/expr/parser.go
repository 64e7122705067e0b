package expr

import "strings"

// DefaultMaxDepth bounds expression nesting (parentheses, unary chains, power
// towers, index and call arguments). Formulas are user-controlled, so the
// recursive-descent parser refuses anything deeper.
const DefaultMaxDepth = 64

// DefaultCacheSize is the number of formulas a Cache retains.
const DefaultCacheSize = 4096

// Options configures parsing.
type Options struct {
	// MaxDepth is the nesting limit. Zero means DefaultMaxDepth.
	MaxDepth int
	// CacheSize bounds a Cache built with these options. Zero means
	// DefaultCacheSize.
	CacheSize int
}

func (o Options) cacheSize() int {
	if o.CacheSize <= 0 {
		return DefaultCacheSize
	}
	return o.CacheSize
}

func (o Options) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

// Expr is a parsed formula. It is immutable and safe for concurrent use.
type Expr struct {
	src    string
	root   node
	idents []string
}

// Source returns the formula text the expression was parsed from.
func (e *Expr) Source() string { return e.src }

// Identifiers returns the variable names the formula references, in order of
// first appearance. Function names are not included.
func (e *Expr) Identifiers() []string {
	return append([]string(nil), e.idents...)
}

// String returns the canonical, fully parenthesized form of the expression.
func (e *Expr) String() string { return e.root.String() }

// Parse parses src with default options.
func Parse(src string) (*Expr, error) {
	return ParseOptions(src, Options{})
}

// ParseOptions parses src.
//
// Grammar, lowest to highest precedence:
//
//	sum     := product (('+' | '-') product)*
//	product := unary (('*' | '/' | '//' | '%') unary)*
//	unary   := ('+' | '-') unary | power
//	power   := primary (('^' | '**') unary)?
//	primary := number | name | name '[' sum ']' | name '(' args ')' | '(' sum ')'
//
// Power is right-associative and binds tighter than unary minus, so -2^2 is -4.
// Unknown functions and wrong arity are reported here rather than at evaluation.
func ParseOptions(src string, opts Options) (*Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, syntaxErrorf(0, "empty expression")
	}
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, maxDepth: opts.maxDepth(), seen: map[string]bool{}}
	root, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, syntaxErrorf(t.pos, "unexpected %s", t.describe())
	}
	return &Expr{src: src, root: root, idents: p.idents}, nil
}

type parser struct {
	toks     []token
	at       int
	depth    int
	maxDepth int
	idents   []string
	seen     map[string]bool
}

func (p *parser) peek() token { return p.toks[p.at] }

func (p *parser) next() token {
	t := p.toks[p.at]
	if t.kind != tokEOF {
		p.at++
	}
	return t
}

func (p *parser) expect(kind tokenKind) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, syntaxErrorf(t.pos, "expected %s, found %s", tokenText[kind], t.describe())
	}
	return t, nil
}

func (p *parser) ref(name string) {
	if !p.seen[name] {
		p.seen[name] = true
		p.idents = append(p.idents, name)
	}
}

func (p *parser) parseSum() (node, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokPlus && t.kind != tokMinus {
			return left, nil
		}
		p.next()
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: t.kind, l: left, r: right, at: t.pos}
	}
}

func (p *parser) parseProduct() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		switch t.kind {
		case tokStar, tokSlash, tokFloorDiv, tokPercent:
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: t.kind, l: left, r: right, at: t.pos}
	}
}

func (p *parser) parseUnary() (node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > p.maxDepth {
		return nil, errorf(KindTooDeep, p.peek().pos, "expression nested deeper than %d levels", p.maxDepth)
	}

	t := p.peek()
	if t.kind == tokPlus || t.kind == tokMinus {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: t.kind, x: x, at: t.pos}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.kind != tokPower {
		return base, nil
	}
	p.next()
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &binaryNode{op: tokPower, l: base, r: exp, at: t.pos}, nil
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return &numberNode{val: t.num, at: t.pos}, nil

	case tokLParen:
		inner, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return inner, nil

	case tokIdent:
		switch p.peek().kind {
		case tokLBracket:
			p.next()
			p.ref(t.text)
			idx, err := p.parseSum()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRBracket); err != nil {
				return nil, err
			}
			return &indexNode{name: t.text, index: idx, at: t.pos}, nil
		case tokLParen:
			p.next()
			return p.parseCall(t)
		}
		p.ref(t.text)
		return &identNode{name: t.text, at: t.pos}, nil
	}
	return nil, syntaxErrorf(t.pos, "unexpected %s", t.describe())
}

func (p *parser) parseCall(name token) (node, error) {
	fn, ok := functions[name.text]
	if !ok {
		return nil, errorf(KindUnknownFunction, name.pos, "unknown function %q", name.text)
	}

	var args []node
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.parseSum()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	if err := fn.checkArity(name.text, len(args), name.pos); err != nil {
		return nil, err
	}
	return &callNode{name: name.text, fn: fn, args: args, at: name.pos}, nil
}
