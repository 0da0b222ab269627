package compiled

import (
	"fmt"
	"unicode"

	"gonum.org/v1/gonum/mat"

	filter "github.com/statespace/linkalman"
)

// The expression engine compiles matrix-algebra assignments of the form
//
//	target = expr
//	expr   := term (('+' | '-') term)*
//	term   := factor ('*' factor)*
//	factor := primary ("'")*
//	primary:= ident | 'inv' '(' expr ')' | '(' expr ')'
//
// into a flat instruction sequence over numbered scratch registers and named
// variable slots. Compilation happens once; Run replays the sequence against
// whatever matrices the slots are currently bound to.

// slot is a rebindable named variable. Rebind swaps which live matrix the
// name points to; it never copies values. Programs hold slot pointers, so a
// rebind is visible on the next Run without recompilation.
type slot struct {
	name string
	m    mat.Matrix
}

// env maps variable names to slots.
type env struct {
	slots map[string]*slot
}

func newEnv() *env {
	return &env{slots: make(map[string]*slot)}
}

// bind binds name to m, creating the slot on first use and rebinding it
// afterwards.
func (e *env) bind(name string, m mat.Matrix) {
	if s, ok := e.slots[name]; ok {
		s.m = m
		return
	}
	e.slots[name] = &slot{name: name, m: m}
}

func (e *env) lookup(name string) (*slot, bool) {
	s, ok := e.slots[name]
	return s, ok
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokPlus
	tokMinus
	tokStar
	tokTick
	tokLParen
	tokRParen
	tokAssign
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func lex(src string) ([]token, error) {
	var toks []token
	rs := []rune(src)

	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '+':
			toks = append(toks, token{tokPlus, "+", i})
			i++
		case r == '-':
			toks = append(toks, token{tokMinus, "-", i})
			i++
		case r == '*':
			toks = append(toks, token{tokStar, "*", i})
			i++
		case r == '\'':
			toks = append(toks, token{tokTick, "'", i})
			i++
		case r == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case r == '=':
			toks = append(toks, token{tokAssign, "=", i})
			i++
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(rs) && (unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j]) || rs[j] == '_') {
				j++
			}
			toks = append(toks, token{tokIdent, string(rs[i:j]), i})
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", r, i)
		}
	}
	toks = append(toks, token{tokEOF, "", len(rs)})

	return toks, nil
}

// AST nodes produced by the parser.
type node interface{}

type identNode struct{ name string }

type transNode struct{ x node }

type invNode struct{ x node }

type binaryNode struct {
	op   tokenKind // tokPlus, tokMinus or tokStar
	x, y node
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(k tokenKind, what string) (token, error) {
	t := p.next()
	if t.kind != k {
		return t, fmt.Errorf("expected %s at position %d, got %q", what, t.pos, t.text)
	}
	return t, nil
}

// parseStmt parses "target = expr" and returns the target name and the
// expression tree.
func parseStmt(src string) (string, node, error) {
	toks, err := lex(src)
	if err != nil {
		return "", nil, err
	}
	p := &parser{toks: toks}

	target, err := p.expect(tokIdent, "assignment target")
	if err != nil {
		return "", nil, err
	}
	if _, err := p.expect(tokAssign, "'='"); err != nil {
		return "", nil, err
	}

	root, err := p.parseExpr()
	if err != nil {
		return "", nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return "", nil, fmt.Errorf("unexpected trailing %q at position %d", t.text, t.pos)
	}

	return target.text, root, nil
}

func (p *parser) parseExpr() (node, error) {
	x, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for {
		t := p.peek()
		if t.kind != tokPlus && t.kind != tokMinus {
			return x, nil
		}
		p.next()

		y, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		x = &binaryNode{op: t.kind, x: x, y: y}
	}
}

func (p *parser) parseTerm() (node, error) {
	x, err := p.parseFactor()
	if err != nil {
		return nil, err
	}

	for p.peek().kind == tokStar {
		p.next()

		y, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		x = &binaryNode{op: tokStar, x: x, y: y}
	}

	return x, nil
}

func (p *parser) parseFactor() (node, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for p.peek().kind == tokTick {
		p.next()
		x = &transNode{x: x}
	}

	return x, nil
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokIdent:
		if t.text == "inv" {
			if _, err := p.expect(tokLParen, "'(' after inv"); err != nil {
				return nil, err
			}
			x, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRParen, "')'"); err != nil {
				return nil, err
			}
			return &invNode{x: x}, nil
		}
		return &identNode{name: t.text}, nil
	case tokLParen:
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return x, nil
	default:
		return nil, fmt.Errorf("unexpected %q at position %d", t.text, t.pos)
	}
}

type opcode int

const (
	opAdd opcode = iota
	opSub
	opMul
	opTrans
	opInv
	opStore
)

// operand refers either to a scratch register (slot == nil) or to a named
// slot's current binding.
type operand struct {
	reg  int
	slot *slot
}

type instr struct {
	op   opcode
	dst  int // destination register, unused for opStore
	a, b operand
	out  *slot // opStore target
}

// program is a compiled assignment: a register count, a flat instruction
// sequence and the slot it stores into. Registers are allocated once and
// reused across runs.
type program struct {
	src  string
	code []instr
	regs []*mat.Dense
}

// compile parses src against e and lowers the expression tree into
// three-address instructions. Every identifier must already be bound in e.
func compile(src string, e *env) (*program, error) {
	target, root, err := parseStmt(src)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %v", src, err)
	}

	out, ok := e.lookup(target)
	if !ok {
		return nil, fmt.Errorf("parse %q: unbound assignment target %q", src, target)
	}

	p := &program{src: src}
	res, err := p.emit(root, e)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %v", src, err)
	}
	p.code = append(p.code, instr{op: opStore, a: res, out: out})

	return p, nil
}

func (p *program) newReg() int {
	p.regs = append(p.regs, &mat.Dense{})
	return len(p.regs) - 1
}

func (p *program) emit(n node, e *env) (operand, error) {
	switch n := n.(type) {
	case *identNode:
		s, ok := e.lookup(n.name)
		if !ok {
			return operand{}, fmt.Errorf("unbound variable %q", n.name)
		}
		return operand{slot: s}, nil
	case *transNode:
		a, err := p.emit(n.x, e)
		if err != nil {
			return operand{}, err
		}
		dst := p.newReg()
		p.code = append(p.code, instr{op: opTrans, dst: dst, a: a})
		return operand{reg: dst}, nil
	case *invNode:
		a, err := p.emit(n.x, e)
		if err != nil {
			return operand{}, err
		}
		dst := p.newReg()
		p.code = append(p.code, instr{op: opInv, dst: dst, a: a})
		return operand{reg: dst}, nil
	case *binaryNode:
		a, err := p.emit(n.x, e)
		if err != nil {
			return operand{}, err
		}
		b, err := p.emit(n.y, e)
		if err != nil {
			return operand{}, err
		}
		dst := p.newReg()
		var op opcode
		switch n.op {
		case tokPlus:
			op = opAdd
		case tokMinus:
			op = opSub
		default:
			op = opMul
		}
		p.code = append(p.code, instr{op: op, dst: dst, a: a, b: b})
		return operand{reg: dst}, nil
	default:
		return operand{}, fmt.Errorf("unknown expression node %T", n)
	}
}

func (p *program) value(o operand) mat.Matrix {
	if o.slot != nil {
		return o.slot.m
	}
	return p.regs[o.reg]
}

// run replays the compiled sequence against the current slot bindings.
// Scratch registers are reset and refilled; the final store copies values
// into the target slot's bound matrix, which must be a *mat.Dense of the
// result's shape. Inversion failure surfaces as filter.SingularMatrixError
// before the store executes.
func (p *program) run() error {
	for _, in := range p.code {
		switch in.op {
		case opAdd:
			dst := p.regs[in.dst]
			dst.Reset()
			dst.Add(p.value(in.a), p.value(in.b))
		case opSub:
			dst := p.regs[in.dst]
			dst.Reset()
			dst.Sub(p.value(in.a), p.value(in.b))
		case opMul:
			dst := p.regs[in.dst]
			dst.Reset()
			dst.Mul(p.value(in.a), p.value(in.b))
		case opTrans:
			dst := p.regs[in.dst]
			a := p.value(in.a)
			r, c := a.Dims()
			dst.Reset()
			dst.ReuseAs(c, r)
			dst.Copy(a.T())
		case opInv:
			dst := p.regs[in.dst]
			dst.Reset()
			if err := dst.Inverse(p.value(in.a)); err != nil {
				return &filter.SingularMatrixError{Err: err}
			}
		case opStore:
			out, ok := in.out.m.(*mat.Dense)
			if !ok {
				return fmt.Errorf("run %q: target %q is not writable", p.src, in.out.name)
			}
			val := p.value(in.a)
			vr, vc := val.Dims()
			or, oc := out.Dims()
			if vr != or || vc != oc {
				return fmt.Errorf("run %q: cannot store [%d x %d] into %q [%d x %d]",
					p.src, vr, vc, in.out.name, or, oc)
			}
			out.Copy(val)
		}
	}

	return nil
}
