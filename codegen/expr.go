package codegen

import (
	"fmt"

	"github.com/fragarco/basc/parser"
)

// comparison materializers keyed by operator
var cmpRoutine = map[string]string{
	"=":  "cmplib_eq",
	"<>": "cmplib_ne",
	"<":  "cmplib_lt",
	"<=": "cmplib_le",
	">":  "cmplib_gt",
	">=": "cmplib_ge",
}

func isComparison(op string) bool {
	_, ok := cmpRoutine[op]
	return ok
}

func isLogical(op string) bool {
	return op == "AND" || op == "OR" || op == "XOR"
}

// inferType assigns a result type to an expression node bottom-up. It is
// pure: lowering consults it before emitting and then mirrors its rules.
func (g *Generator) inferType(e parser.Expression) (parser.ValueType, *parser.Error) {
	switch n := e.(type) {
	case *parser.IntLit:
		return parser.TypeInteger, nil
	case *parser.RealLit:
		return parser.TypeReal, nil
	case *parser.StrLit:
		return parser.TypeString, nil
	case *parser.GroupExpr:
		return g.inferType(n.Inner)

	case *parser.VarRef:
		v, _ := g.symbols.Variable(n.Name)
		return v.Type, nil

	case *parser.ArrayRef:
		v, _ := g.symbols.Variable(n.Name)
		if it, err := g.inferType(n.Index); err != nil {
			return parser.TypeUnknown, err
		} else if it == parser.TypeString {
			return parser.TypeUnknown, parser.NewError(n.Index.Position(), parser.ErrorType,
				"array subscript cannot be a string")
		}
		return v.Type, nil

	case *parser.UnaryExpr:
		t, err := g.inferType(n.Operand)
		if err != nil {
			return parser.TypeUnknown, err
		}
		if t == parser.TypeString {
			return parser.TypeUnknown, parser.NewError(n.Pos, parser.ErrorType,
				fmt.Sprintf("%s cannot be applied to a string", n.Op))
		}
		if n.Op == "NOT" {
			// Logical operators work on integers; reals are truncated
			return parser.TypeInteger, nil
		}
		return t, nil

	case *parser.BinaryExpr:
		lt, err := g.inferType(n.Left)
		if err != nil {
			return parser.TypeUnknown, err
		}
		rt, err := g.inferType(n.Right)
		if err != nil {
			return parser.TypeUnknown, err
		}

		ls, rs := lt == parser.TypeString, rt == parser.TypeString
		switch {
		case ls && rs:
			if n.Op == "+" {
				return parser.TypeString, nil
			}
			if n.Op == "=" || n.Op == "<>" {
				return parser.TypeInteger, nil
			}
			return parser.TypeUnknown, parser.NewError(n.Pos, parser.ErrorType,
				fmt.Sprintf("%s cannot be applied to strings", n.Op))
		case ls || rs:
			return parser.TypeUnknown, parser.NewError(n.Pos, parser.ErrorType,
				fmt.Sprintf("%s mixes a string with a numeric operand", n.Op))
		}

		if isComparison(n.Op) || isLogical(n.Op) {
			return parser.TypeInteger, nil
		}
		if lt == parser.TypeReal || rt == parser.TypeReal {
			return parser.TypeReal, nil
		}
		return parser.TypeInteger, nil

	case *parser.CallExpr:
		if err := g.checkCallArgs(n); err != nil {
			return parser.TypeUnknown, err
		}
		if n.Func.Name == "ABS" {
			return g.inferType(n.Args[0])
		}
		return n.Func.Result, nil
	}

	return parser.TypeUnknown, parser.NewError(e.Position(), parser.ErrorType, "unresolved expression")
}

// checkCallArgs validates builtin argument types
func (g *Generator) checkCallArgs(n *parser.CallExpr) *parser.Error {
	wantString := map[string]bool{
		"ASC": true, "LEN": true, "VAL": true,
		"LEFT$": true, "RIGHT$": true, "MID$": true,
	}

	for i, arg := range n.Args {
		t, err := g.inferType(arg)
		if err != nil {
			return err
		}
		stringWanted := i == 0 && wantString[n.Func.Name]
		if stringWanted && t != parser.TypeString {
			return parser.NewError(arg.Position(), parser.ErrorType,
				fmt.Sprintf("%s needs a string argument", n.Func.Name))
		}
		if !stringWanted && t == parser.TypeString {
			return parser.NewError(arg.Position(), parser.ErrorType,
				fmt.Sprintf("argument %d of %s cannot be a string", i+1, n.Func.Name))
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Lowering
//
// Integer results land in HL. Real and string results land in a buffer
// whose address is in HL; the buffer belongs to the expression that
// produced it and is treated read-only by consumers, which copy into
// their own scratch before mutating.

// genExpr lowers an expression and returns its result type
func (g *Generator) genExpr(e parser.Expression) (parser.ValueType, *parser.Error) {
	t, err := g.inferType(e)
	if err != nil {
		return parser.TypeUnknown, err
	}

	switch n := e.(type) {
	case *parser.IntLit:
		g.emit("ld hl,%d", n.Value)

	case *parser.RealLit:
		if _, err := EncodeReal(n.Value); err != nil {
			return parser.TypeUnknown, parser.NewError(n.Pos, parser.ErrorRange, err.Error())
		}
		g.emit("ld hl,%s", g.realLit(n.Value))

	case *parser.StrLit:
		g.emit("ld hl,%s", g.strLit(n.Value))

	case *parser.GroupExpr:
		return g.genExpr(n.Inner)

	case *parser.VarRef:
		v := g.markVar(n.Name)
		if v.Type == parser.TypeInteger {
			g.emit("ld hl,(%s)", v.Label)
		} else {
			g.emit("ld hl,%s", v.Label)
		}

	case *parser.ArrayRef:
		v := g.markVar(n.Name)
		if err := g.genArrayAddr(n, v); err != nil {
			return parser.TypeUnknown, err
		}
		if v.Type == parser.TypeInteger {
			g.emit("ld a,(hl)")
			g.emit("inc hl")
			g.emit("ld h,(hl)")
			g.emit("ld l,a")
		}

	case *parser.UnaryExpr:
		return t, g.genUnary(n, t)

	case *parser.BinaryExpr:
		return t, g.genBinary(n)

	case *parser.CallExpr:
		return t, g.genCall(n)
	}

	return t, nil
}

// genArrayAddr leaves the address of an array element in HL
func (g *Generator) genArrayAddr(n *parser.ArrayRef, v *parser.Variable) *parser.Error {
	if _, err := g.genIntOperand(n.Index); err != nil {
		return err
	}
	if v.Type == parser.TypeInteger {
		g.emit("add hl,hl")
	} else {
		// 5-byte elements: index*4 + index
		g.emit("ld d,h")
		g.emit("ld e,l")
		g.emit("add hl,hl")
		g.emit("add hl,hl")
		g.emit("add hl,de")
	}
	g.emit("ld de,%s", v.Label)
	g.emit("add hl,de")
	return nil
}

// genIntOperand lowers an expression and coerces a real result to an
// integer in HL
func (g *Generator) genIntOperand(e parser.Expression) (parser.ValueType, *parser.Error) {
	t, err := g.genExpr(e)
	if err != nil {
		return t, err
	}
	if t == parser.TypeReal {
		g.use("reallib_toint")
		g.emit("call reallib_toint")
	}
	return t, nil
}

// genRealOperand lowers an expression, promotes an integer result and
// copies the value into a fresh scratch buffer so later evaluation
// cannot clobber it. Returns the buffer label; HL is not left pointing
// at the buffer.
func (g *Generator) genRealOperand(e parser.Expression) (string, *parser.Error) {
	t, err := g.genExpr(e)
	if err != nil {
		return "", err
	}
	if t == parser.TypeInteger {
		g.use("reallib_fromint")
		g.emit("call reallib_fromint")
	}
	tmp := g.newTemp(5)
	g.use("reallib_copy")
	g.emit("ld de,%s", tmp)
	g.emit("call reallib_copy")
	return tmp, nil
}

func (g *Generator) genUnary(n *parser.UnaryExpr, t parser.ValueType) *parser.Error {
	if n.Op == "NOT" {
		if _, err := g.genIntOperand(n.Operand); err != nil {
			return err
		}
		g.emit("ld a,h")
		g.emit("cpl")
		g.emit("ld h,a")
		g.emit("ld a,l")
		g.emit("cpl")
		g.emit("ld l,a")
		return nil
	}

	// unary minus
	if t == parser.TypeReal {
		tmp, err := g.genRealOperand(n.Operand)
		if err != nil {
			return err
		}
		g.use("reallib_neg")
		g.emit("ld hl,%s", tmp)
		g.emit("call reallib_neg")
		return nil
	}

	if _, err := g.genExpr(n.Operand); err != nil {
		return err
	}
	g.use("intlib_neg")
	g.emit("call intlib_neg")
	return nil
}

func (g *Generator) genBinary(n *parser.BinaryExpr) *parser.Error {
	lt, _ := g.inferType(n.Left)
	rt, _ := g.inferType(n.Right)

	// strings
	if lt == parser.TypeString && rt == parser.TypeString {
		return g.genStringBinary(n)
	}

	// logical operators work on integers
	if isLogical(n.Op) {
		return g.genIntBinary(n, true)
	}

	if lt == parser.TypeReal || rt == parser.TypeReal {
		return g.genRealBinary(n)
	}

	return g.genIntBinary(n, false)
}

// genIntBinary lowers an integer binary operation: left is pushed,
// right evaluated into HL, left popped into DE
func (g *Generator) genIntBinary(n *parser.BinaryExpr, coerce bool) *parser.Error {
	eval := g.genExpr
	if coerce {
		eval = g.genIntOperand
	}

	if _, err := eval(n.Left); err != nil {
		return err
	}
	g.emit("push hl")
	if _, err := eval(n.Right); err != nil {
		return err
	}
	g.emit("pop de")

	switch n.Op {
	case "+":
		g.emit("add hl,de")
	case "-":
		g.emit("ex de,hl")
		g.emit("or a")
		g.emit("sbc hl,de")
	case "*":
		g.use("mathlib_mul16")
		g.emit("call mathlib_mul16")
	case "/":
		g.use("mathlib_div16")
		g.emit("ex de,hl")
		g.emit("call mathlib_div16")
	case "MOD":
		g.use("mathlib_mod16")
		g.emit("ex de,hl")
		g.emit("call mathlib_mod16")
	case "^":
		g.use("mathlib_pow16")
		g.emit("ex de,hl")
		g.emit("call mathlib_pow16")
	case "AND":
		g.emit("ld a,h")
		g.emit("and d")
		g.emit("ld h,a")
		g.emit("ld a,l")
		g.emit("and e")
		g.emit("ld l,a")
	case "OR":
		g.emit("ld a,h")
		g.emit("or d")
		g.emit("ld h,a")
		g.emit("ld a,l")
		g.emit("or e")
		g.emit("ld l,a")
	case "XOR":
		g.emit("ld a,h")
		g.emit("xor d")
		g.emit("ld h,a")
		g.emit("ld a,l")
		g.emit("xor e")
		g.emit("ld l,a")
	default:
		if routine, ok := cmpRoutine[n.Op]; ok {
			g.use("intlib_cmp")
			g.use(routine)
			g.emit("ex de,hl")
			g.emit("call intlib_cmp")
			g.emit("call %s", routine)
			return nil
		}
		return parser.NewError(n.Pos, parser.ErrorType, fmt.Sprintf("unknown operator %s", n.Op))
	}

	return nil
}

// genRealBinary lowers a real binary operation: both operands end up in
// scratch buffers, the right one first, then the library routine runs
// with DE as the destination
func (g *Generator) genRealBinary(n *parser.BinaryExpr) *parser.Error {
	right, err := g.genRealOperand(n.Right)
	if err != nil {
		return err
	}

	if isComparison(n.Op) {
		// Left can be used in place: its buffer survives, the right
		// operand was copied aside
		if _, err := g.genExpr(n.Left); err != nil {
			return err
		}
		if lt, _ := g.inferType(n.Left); lt == parser.TypeInteger {
			g.use("reallib_fromint")
			g.emit("call reallib_fromint")
		}
		routine := cmpRoutine[n.Op]
		g.use("reallib_cmp")
		g.use(routine)
		g.emit("ld de,%s", right)
		g.emit("call reallib_cmp")
		g.emit("call %s", routine)
		return nil
	}

	left, err := g.genRealOperand(n.Left)
	if err != nil {
		return err
	}

	var routine string
	switch n.Op {
	case "+":
		routine = "reallib_add"
	case "-":
		routine = "reallib_sub"
	case "*":
		routine = "reallib_mul"
	case "/":
		routine = "reallib_div"
	case "^":
		routine = "reallib_pow"
	default:
		return parser.NewError(n.Pos, parser.ErrorType, fmt.Sprintf("unknown operator %s", n.Op))
	}

	g.use(routine)
	g.emit("ld hl,%s", right)
	g.emit("ld de,%s", left)
	g.emit("call %s", routine)
	g.emit("ld hl,%s", left)
	return nil
}

func (g *Generator) genStringBinary(n *parser.BinaryExpr) *parser.Error {
	if n.Op == "+" {
		if _, err := g.genExpr(n.Left); err != nil {
			return err
		}
		g.emit("push hl")
		if _, err := g.genExpr(n.Right); err != nil {
			return err
		}
		g.emit("pop de")
		tmp := g.newTemp(256)
		g.use("strlib_concat")
		g.emit("ld bc,%s", tmp)
		g.emit("call strlib_concat")
		return nil
	}

	// = or <> on two strings
	if _, err := g.genExpr(n.Right); err != nil {
		return err
	}
	tmp := g.newTemp(256)
	g.use("strlib_copy")
	g.emit("ld de,%s", tmp)
	g.emit("call strlib_copy")
	if _, err := g.genExpr(n.Left); err != nil {
		return err
	}
	routine := cmpRoutine[n.Op]
	g.use("strlib_cmp")
	g.use(routine)
	g.emit("ld de,%s", tmp)
	g.emit("call strlib_cmp")
	g.emit("call %s", routine)
	return nil
}

// copyStringResult copies a shared-buffer string result into a fresh
// scratch buffer so chained expressions cannot clobber it
func (g *Generator) copyStringResult() {
	tmp := g.newTemp(256)
	g.use("strlib_copy")
	g.emit("ld de,%s", tmp)
	g.emit("call strlib_copy")
	g.emit("ld hl,%s", tmp)
}

func (g *Generator) genCall(n *parser.CallExpr) *parser.Error {
	switch n.Func.Name {
	case "ABS":
		t, _ := g.inferType(n.Args[0])
		if t == parser.TypeReal {
			tmp, err := g.genRealOperand(n.Args[0])
			if err != nil {
				return err
			}
			g.use("reallib_abs")
			g.emit("ld hl,%s", tmp)
			g.emit("call reallib_abs")
			return nil
		}
		if _, err := g.genExpr(n.Args[0]); err != nil {
			return err
		}
		g.use("intlib_abs")
		g.emit("call intlib_abs")

	case "ASC":
		if _, err := g.genExpr(n.Args[0]); err != nil {
			return err
		}
		g.emit("ld a,(hl)")
		g.emit("ld l,a")
		g.emit("ld h,0")

	case "CHR$":
		if _, err := g.genIntOperand(n.Args[0]); err != nil {
			return err
		}
		tmp := g.newTemp(2)
		g.emit("ld a,l")
		g.emit("ld (%s),a", tmp)
		g.emit("xor a")
		g.emit("ld (%s+1),a", tmp)
		g.emit("ld hl,%s", tmp)

	case "HEX$":
		if _, err := g.genIntOperand(n.Args[0]); err != nil {
			return err
		}
		g.use("strlib_hex")
		g.emit("call strlib_hex")
		g.copyStringResult()

	case "INKEY$":
		g.use("strlib_inkey")
		g.emit("call strlib_inkey")
		g.copyStringResult()

	case "INT":
		if _, err := g.genIntOperand(n.Args[0]); err != nil {
			return err
		}

	case "LEN":
		if _, err := g.genExpr(n.Args[0]); err != nil {
			return err
		}
		g.use("strlib_len")
		g.emit("call strlib_len")

	case "LEFT$", "RIGHT$":
		if _, err := g.genExpr(n.Args[0]); err != nil {
			return err
		}
		g.emit("push hl")
		if _, err := g.genIntOperand(n.Args[1]); err != nil {
			return err
		}
		g.emit("pop de")
		tmp := g.newTemp(256)
		routine := "strlib_left"
		if n.Func.Name == "RIGHT$" {
			routine = "strlib_right"
		}
		g.use(routine)
		g.emit("ld bc,%s", tmp)
		g.emit("call %s", routine)

	case "MID$":
		if len(n.Args) == 3 {
			if _, err := g.genIntOperand(n.Args[2]); err != nil {
				return err
			}
		} else {
			g.emit("ld hl,255")
		}
		g.use("strlib_mid")
		g.emit("ld a,l")
		g.emit("ld (strlib_arg),a")
		if _, err := g.genExpr(n.Args[0]); err != nil {
			return err
		}
		g.emit("push hl")
		if _, err := g.genIntOperand(n.Args[1]); err != nil {
			return err
		}
		g.emit("pop de")
		tmp := g.newTemp(256)
		g.emit("ld bc,%s", tmp)
		g.emit("call strlib_mid")

	case "PEEK":
		if _, err := g.genIntOperand(n.Args[0]); err != nil {
			return err
		}
		g.emit("ld a,(hl)")
		g.emit("ld l,a")
		g.emit("ld h,0")

	case "STR$":
		t, _ := g.inferType(n.Args[0])
		if t == parser.TypeReal {
			if _, err := g.genExpr(n.Args[0]); err != nil {
				return err
			}
			g.use("reallib_str")
			g.emit("call reallib_str")
		} else {
			if _, err := g.genExpr(n.Args[0]); err != nil {
				return err
			}
			g.use("strlib_int2str")
			g.emit("call strlib_int2str")
		}
		g.copyStringResult()

	case "VAL":
		if _, err := g.genExpr(n.Args[0]); err != nil {
			return err
		}
		g.use("strlib_val")
		g.emit("call strlib_val")

	default:
		return parser.NewError(n.Pos, parser.ErrorType,
			fmt.Sprintf("unknown builtin %s", n.Func.Name))
	}

	return nil
}
