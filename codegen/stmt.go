package codegen

import (
	"fmt"

	"github.com/fragarco/basc/parser"
)

// Firmware entry points used by statement lowering. Referenced as bare
// hex literals in the output per CPC convention.
const (
	fwTxtSetCursor = "&BB75" // TXT SET CURSOR
	fwTxtSetPen    = "&BB90" // TXT SET PEN
	fwTxtSetPaper  = "&BB96" // TXT SET PAPER
	fwTxtClearWin  = "&BB6C" // TXT CLEAR WINDOW
	fwTxtSetMatrix = "&BBA8" // TXT SET MATRIX
	fwTxtSetMTable = "&BBAB" // TXT SET M TABLE
	fwScrSetMode   = "&BC0E" // SCR SET MODE
	fwGraPlotAbs   = "&BBEA" // GRA PLOT ABSOLUTE
	fwGraLineAbs   = "&BBF6" // GRA LINE ABSOLUTE
)

func (g *Generator) genStatement(st parser.Statement) *parser.Error {
	switch n := st.(type) {
	case *parser.RemarkStmt, *parser.LabelStmt, *parser.DataStmt, *parser.DimStmt:
		// No code: remarks and labels are bookkeeping, DATA lives in the
		// data area, DIM only sizes a reservation
		if dim, ok := st.(*parser.DimStmt); ok {
			g.markVar(dim.Name)
		}
		return nil

	case *parser.LetStmt:
		return g.genLet(n)
	case *parser.PrintStmt:
		return g.genPrint(n)
	case *parser.InputStmt:
		return g.genInput(n)
	case *parser.IfStmt:
		return g.genIf(n)
	case *parser.ForStmt:
		return g.genFor(n)
	case *parser.NextStmt:
		return g.genNext(n)
	case *parser.WhileStmt:
		return g.genWhile(n)
	case *parser.WendStmt:
		return g.genWend(n)
	case *parser.GotoStmt:
		g.emit("jp %s", g.branchTarget(n.Line, n.Label))
		return nil
	case *parser.GosubStmt:
		g.emit("call %s", g.branchTarget(n.Line, n.Label))
		return nil
	case *parser.ReturnStmt:
		g.emit("ret")
		return nil
	case *parser.EndStmt:
		g.emit("ret")
		return nil

	case *parser.ClsStmt:
		g.emit("call %s", fwTxtClearWin)
		return nil

	case *parser.ModeStmt:
		if err := g.genByteArg(n.Mode, "MODE"); err != nil {
			return err
		}
		g.emit("call %s", fwScrSetMode)
		return nil

	case *parser.PenStmt:
		if err := g.genByteArg(n.Pen, "PEN"); err != nil {
			return err
		}
		g.emit("call %s", fwTxtSetPen)
		return nil

	case *parser.PaperStmt:
		if err := g.genByteArg(n.Paper, "PAPER"); err != nil {
			return err
		}
		g.emit("call %s", fwTxtSetPaper)
		return nil

	case *parser.LocateStmt:
		if err := g.genIntStmtArg(n.Col, "LOCATE"); err != nil {
			return err
		}
		g.emit("push hl")
		if err := g.genIntStmtArg(n.Row, "LOCATE"); err != nil {
			return err
		}
		g.emit("pop de")
		g.emit("ld h,e")
		g.emit("call %s", fwTxtSetCursor)
		return nil

	case *parser.PlotStmt:
		return g.genGraphics(n.X, n.Y, fwGraPlotAbs, "PLOT")
	case *parser.DrawStmt:
		return g.genGraphics(n.X, n.Y, fwGraLineAbs, "DRAW")

	case *parser.PokeStmt:
		if err := g.genIntStmtArg(n.Addr, "POKE"); err != nil {
			return err
		}
		g.emit("push hl")
		if err := g.genIntStmtArg(n.Value, "POKE"); err != nil {
			return err
		}
		g.emit("pop de")
		g.emit("ld a,l")
		g.emit("ld (de),a")
		return nil

	case *parser.CallStmt:
		if err := g.genIntStmtArg(n.Addr, "CALL"); err != nil {
			return err
		}
		g.use("calllib_jp")
		g.emit("call calllib_jp")
		return nil

	case *parser.SymbolStmt:
		return g.genSymbol(n)
	case *parser.SymbolAfterStmt:
		return g.genSymbolAfter(n)

	case *parser.ReadStmt:
		return g.genRead(n)

	case *parser.RestoreStmt:
		g.use("datalib_read")
		if n.HasLine {
			g.emit("ld hl,%s", g.dataLineLabel(n.Line))
		} else {
			g.emit("ld hl,__data_area")
		}
		g.emit("ld (data_ptr),hl")
		return nil
	}

	return parser.NewError(st.Position(), parser.ErrorType, "statement not lowered")
}

// branchTarget resolves a line number or LABEL alias to its assembly
// label, marking it referenced for the symbol map
func (g *Generator) branchTarget(line uint16, label string) string {
	var t *parser.LineTarget
	if label != "" {
		t, _ = g.symbols.Alias(label)
	} else {
		t, _ = g.symbols.Line(line)
	}
	t.Referenced = true
	return t.Label
}

// genIntStmtArg lowers a statement argument that must be an integer,
// warning about implicit truncation of reals
func (g *Generator) genIntStmtArg(e parser.Expression, ctx string) *parser.Error {
	t, err := g.inferType(e)
	if err != nil {
		return err
	}
	if t == parser.TypeString {
		return parser.NewError(e.Position(), parser.ErrorType,
			fmt.Sprintf("%s argument cannot be a string", ctx))
	}
	if t == parser.TypeReal {
		g.warn(e.Position(), "%s argument truncated from real to integer", ctx)
	}
	_, err = g.genIntOperand(e)
	return err
}

// genByteArg is genIntStmtArg with the low byte moved into A
func (g *Generator) genByteArg(e parser.Expression, ctx string) *parser.Error {
	if err := g.genIntStmtArg(e, ctx); err != nil {
		return err
	}
	g.emit("ld a,l")
	return nil
}

func (g *Generator) genGraphics(x, y parser.Expression, entry, ctx string) *parser.Error {
	if err := g.genIntStmtArg(x, ctx); err != nil {
		return err
	}
	g.emit("push hl")
	if err := g.genIntStmtArg(y, ctx); err != nil {
		return err
	}
	g.emit("pop de")
	g.emit("call %s", entry)
	return nil
}

func (g *Generator) genLet(n *parser.LetStmt) *parser.Error {
	vt, err := g.inferType(n.Value)
	if err != nil {
		return err
	}

	switch target := n.Target.(type) {
	case *parser.VarRef:
		v := g.markVar(target.Name)
		return g.genStore(v.Type, v.Label, false, n.Value, vt, n.Pos)

	case *parser.ArrayRef:
		v := g.markVar(target.Name)
		if err := g.genArrayAddr(target, v); err != nil {
			return err
		}
		g.emit("push hl")
		if err := g.genStore(v.Type, "", true, n.Value, vt, n.Pos); err != nil {
			return err
		}
		return nil
	}

	return parser.NewError(n.Pos, parser.ErrorType, "assignment target is not a variable")
}

// genStore assigns the value expression to a scalar label or, when
// indirect, to the address pushed on the stack
func (g *Generator) genStore(tt parser.ValueType, label string, indirect bool,
	value parser.Expression, vt parser.ValueType, pos parser.Position) *parser.Error {

	switch tt {
	case parser.TypeInteger:
		if vt == parser.TypeString {
			return parser.NewError(pos, parser.ErrorType, "cannot assign a string to an integer variable")
		}
		if vt == parser.TypeReal {
			g.warn(pos, "real value truncated to integer in assignment")
		}
		if _, err := g.genIntOperand(value); err != nil {
			return err
		}
		if indirect {
			g.emit("pop de")
			g.emit("ex de,hl")
			g.emit("ld (hl),e")
			g.emit("inc hl")
			g.emit("ld (hl),d")
		} else {
			g.emit("ld (%s),hl", label)
		}

	case parser.TypeReal:
		if vt == parser.TypeString {
			return parser.NewError(pos, parser.ErrorType, "cannot assign a string to a real variable")
		}
		if _, err := g.genExpr(value); err != nil {
			return err
		}
		if vt == parser.TypeInteger {
			g.use("reallib_fromint")
			g.emit("call reallib_fromint")
		}
		g.use("reallib_copy")
		if indirect {
			g.emit("pop de")
		} else {
			g.emit("ld de,%s", label)
		}
		g.emit("call reallib_copy")

	case parser.TypeString:
		if vt != parser.TypeString {
			return parser.NewError(pos, parser.ErrorType, "cannot assign a number to a string variable")
		}
		if _, err := g.genExpr(value); err != nil {
			return err
		}
		g.use("strlib_copy")
		if indirect {
			g.emit("pop de")
		} else {
			g.emit("ld de,%s", label)
		}
		g.emit("call strlib_copy")
	}

	return nil
}

func (g *Generator) genPrint(n *parser.PrintStmt) *parser.Error {
	for _, item := range n.Items {
		t, err := g.genExpr(item.Expr)
		if err != nil {
			return err
		}

		switch t {
		case parser.TypeInteger:
			g.use("strlib_print_int")
			g.emit("call strlib_print_int")
		case parser.TypeReal:
			g.use("reallib_print")
			g.emit("call reallib_print")
		case parser.TypeString:
			g.use("strlib_print_str")
			g.emit("call strlib_print_str")
		}

		if item.Sep == ',' {
			g.use("strlib_print_zone")
			g.emit("call strlib_print_zone")
		}
	}

	// A trailing ; or , suppresses the newline
	if len(n.Items) == 0 || n.Items[len(n.Items)-1].Sep == 0 {
		g.use("strlib_print_nl")
		g.emit("call strlib_print_nl")
	}

	return nil
}

func (g *Generator) genInput(n *parser.InputStmt) *parser.Error {
	if n.Prompt != "" {
		g.use("strlib_print_str")
		g.emit("ld hl,%s", g.strLit(n.Prompt))
		g.emit("call strlib_print_str")
	}

	for _, target := range n.Targets {
		v := g.markVar(target.Name)
		g.use("inputlib_line")
		g.emit("call inputlib_line")

		switch v.Type {
		case parser.TypeString:
			g.use("strlib_copy")
			g.emit("ld de,%s", v.Label)
			g.emit("call strlib_copy")
		case parser.TypeInteger:
			g.use("strlib_val")
			g.emit("call strlib_val")
			g.emit("ld (%s),hl", v.Label)
		case parser.TypeReal:
			g.use("strlib_val")
			g.use("reallib_fromint")
			g.use("reallib_copy")
			g.emit("call strlib_val")
			g.emit("call reallib_fromint")
			g.emit("ld de,%s", v.Label)
			g.emit("call reallib_copy")
		}
	}

	return nil
}

func (g *Generator) genIf(n *parser.IfStmt) *parser.Error {
	t, err := g.inferType(n.Cond)
	if err != nil {
		return err
	}
	if t == parser.TypeString {
		return parser.NewError(n.Cond.Position(), parser.ErrorType, "IF condition cannot be a string")
	}

	if _, err := g.genIntOperand(n.Cond); err != nil {
		return err
	}

	elseLabel := g.newLabel("else")
	endLabel := g.newLabel("endif")

	g.emit("ld a,h")
	g.emit("or l")
	if len(n.Else) > 0 {
		g.emit("jp z,%s", elseLabel)
	} else {
		g.emit("jp z,%s", endLabel)
	}

	for _, st := range n.Then {
		if err := g.genStatement(st); err != nil {
			return err
		}
	}

	if len(n.Else) > 0 {
		g.emit("jp %s", endLabel)
		g.emitLabel(elseLabel)
		for _, st := range n.Else {
			if err := g.genStatement(st); err != nil {
				return err
			}
		}
	}

	g.emitLabel(endLabel)
	return nil
}

func (g *Generator) genFor(n *parser.ForStmt) *parser.Error {
	v := g.markVar(n.Var.Name)

	ctx := loopContext{
		kind:     loopFor,
		id:       g.labelSeq,
		varName:  parser.CanonicalName(n.Var.Name),
		varLabel: v.Label,
		isReal:   v.Type == parser.TypeReal,
		pos:      n.Pos,
	}
	g.labelSeq++
	ctx.headLabel = fmt.Sprintf("__for_head_%d", ctx.id)
	ctx.exitLabel = fmt.Sprintf("__for_exit_%d", ctx.id)

	step := n.Step
	if step == nil {
		step = &parser.IntLit{Value: 1, Pos: n.Pos}
	}

	if ctx.isReal {
		ctx.limitTemp = g.newTemp(5)
		ctx.stepTemp = g.newTemp(5)

		// index := from
		if err := g.genStore(parser.TypeReal, v.Label, false, n.From, mustType(g, n.From), n.Pos); err != nil {
			return err
		}
		if err := g.genStore(parser.TypeReal, ctx.limitTemp, false, n.To, mustType(g, n.To), n.Pos); err != nil {
			return err
		}
		if err := g.genStore(parser.TypeReal, ctx.stepTemp, false, step, mustType(g, step), n.Pos); err != nil {
			return err
		}

		g.use("forlib_check_real")
		g.emitLabel(ctx.headLabel)
		g.emit("ld hl,%s", v.Label)
		g.emit("ld de,%s", ctx.limitTemp)
		g.emit("ld bc,%s", ctx.stepTemp)
		g.emit("call forlib_check_real")
		g.emit("jp z,%s", ctx.exitLabel)
	} else {
		ctx.limitTemp = g.newTemp(2)
		ctx.stepTemp = g.newTemp(2)

		if err := g.genStore(parser.TypeInteger, v.Label, false, n.From, mustType(g, n.From), n.Pos); err != nil {
			return err
		}
		if err := g.genStore(parser.TypeInteger, ctx.limitTemp, false, n.To, mustType(g, n.To), n.Pos); err != nil {
			return err
		}
		if err := g.genStore(parser.TypeInteger, ctx.stepTemp, false, step, mustType(g, step), n.Pos); err != nil {
			return err
		}

		g.use("forlib_check")
		g.emitLabel(ctx.headLabel)
		g.emit("ld hl,(%s)", v.Label)
		g.emit("ld de,(%s)", ctx.limitTemp)
		g.emit("ld bc,(%s)", ctx.stepTemp)
		g.emit("call forlib_check")
		g.emit("jp z,%s", ctx.exitLabel)
	}

	g.loops = append(g.loops, ctx)
	return nil
}

// mustType re-infers a type already validated by genStore's callers
func mustType(g *Generator, e parser.Expression) parser.ValueType {
	t, _ := g.inferType(e)
	return t
}

func (g *Generator) genNext(n *parser.NextStmt) *parser.Error {
	if len(g.loops) == 0 {
		return parser.NewError(n.Pos, parser.ErrorNesting, "NEXT without an open FOR")
	}

	ctx := g.loops[len(g.loops)-1]
	if ctx.kind != loopFor {
		return parser.NewError(n.Pos, parser.ErrorNesting, "NEXT inside WHILE; expected WEND")
	}
	if n.Var != nil {
		name := parser.CanonicalName(n.Var.Name)
		if name != ctx.varName {
			return parser.NewError(n.Pos, parser.ErrorNesting,
				fmt.Sprintf("NEXT %s does not match the open FOR %s", name, ctx.varName))
		}
	}
	g.loops = g.loops[:len(g.loops)-1]

	if ctx.isReal {
		g.use("reallib_add")
		g.emit("ld hl,%s", ctx.stepTemp)
		g.emit("ld de,%s", ctx.varLabel)
		g.emit("call reallib_add")
	} else {
		g.emit("ld hl,(%s)", ctx.varLabel)
		g.emit("ld de,(%s)", ctx.stepTemp)
		g.emit("add hl,de")
		g.emit("ld (%s),hl", ctx.varLabel)
	}
	g.emit("jp %s", ctx.headLabel)
	g.emitLabel(ctx.exitLabel)

	return nil
}

func (g *Generator) genWhile(n *parser.WhileStmt) *parser.Error {
	t, err := g.inferType(n.Cond)
	if err != nil {
		return err
	}
	if t == parser.TypeString {
		return parser.NewError(n.Cond.Position(), parser.ErrorType, "WHILE condition cannot be a string")
	}

	ctx := loopContext{
		kind: loopWhile,
		id:   g.labelSeq,
		pos:  n.Pos,
	}
	g.labelSeq++
	ctx.headLabel = fmt.Sprintf("__while_head_%d", ctx.id)
	ctx.exitLabel = fmt.Sprintf("__wend_%d", ctx.id)

	g.emitLabel(ctx.headLabel)
	if _, err := g.genIntOperand(n.Cond); err != nil {
		return err
	}
	g.emit("ld a,h")
	g.emit("or l")
	g.emit("jp z,%s", ctx.exitLabel)

	g.loops = append(g.loops, ctx)
	return nil
}

func (g *Generator) genWend(n *parser.WendStmt) *parser.Error {
	if len(g.loops) == 0 {
		return parser.NewError(n.Pos, parser.ErrorNesting, "WEND without an open WHILE")
	}
	ctx := g.loops[len(g.loops)-1]
	if ctx.kind != loopWhile {
		return parser.NewError(n.Pos, parser.ErrorNesting, "WEND inside FOR; expected NEXT")
	}
	g.loops = g.loops[:len(g.loops)-1]

	g.emit("jp %s", ctx.headLabel)
	g.emitLabel(ctx.exitLabel)
	return nil
}

func (g *Generator) genSymbol(n *parser.SymbolStmt) *parser.Error {
	matrix := g.newTemp(8)

	for i, row := range n.Rows {
		if err := g.genIntStmtArg(row, "SYMBOL"); err != nil {
			return err
		}
		g.emit("ld a,l")
		g.emit("ld (%s+%d),a", matrix, i)
	}
	for i := len(n.Rows); i < 8; i++ {
		g.emit("xor a")
		g.emit("ld (%s+%d),a", matrix, i)
	}

	if err := g.genByteArg(n.Char, "SYMBOL"); err != nil {
		return err
	}
	g.emit("ld hl,%s", matrix)
	g.emit("call %s", fwTxtSetMatrix)
	return nil
}

func (g *Generator) genSymbolAfter(n *parser.SymbolAfterStmt) *parser.Error {
	// A constant first character sizes the matrix table exactly; a
	// computed one falls back to the Locomotive default of 16 characters
	size := 128
	if lit, ok := n.First.(*parser.IntLit); ok {
		if lit.Value < 0 || lit.Value > 255 {
			return parser.NewError(n.Pos, parser.ErrorRange, "SYMBOL AFTER argument must be 0..255")
		}
		size = 8 * (256 - int(lit.Value))
	} else {
		g.warn(n.Pos, "SYMBOL AFTER with a computed argument reserves the default 16-character table")
	}
	if size > g.symTableLen {
		g.symTableLen = size
	}

	if err := g.genIntStmtArg(n.First, "SYMBOL AFTER"); err != nil {
		return err
	}
	g.emit("ld de,symbol_table")
	g.emit("call %s", fwTxtSetMTable)
	return nil
}

func (g *Generator) genRead(n *parser.ReadStmt) *parser.Error {
	for _, target := range n.Targets {
		v := g.markVar(target.Name)
		g.use("datalib_read")
		g.emit("call datalib_read")

		switch v.Type {
		case parser.TypeString:
			g.use("strlib_copy")
			g.emit("ld de,%s", v.Label)
			g.emit("call strlib_copy")
		case parser.TypeInteger:
			g.use("strlib_val")
			g.emit("call strlib_val")
			g.emit("ld (%s),hl", v.Label)
		case parser.TypeReal:
			g.use("strlib_val")
			g.use("reallib_fromint")
			g.use("reallib_copy")
			g.emit("call strlib_val")
			g.emit("call reallib_fromint")
			g.emit("ld de,%s", v.Label)
			g.emit("call reallib_copy")
		}
	}
	return nil
}
