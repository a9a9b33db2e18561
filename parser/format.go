package parser

import (
	"fmt"
	"strings"
)

// FormatProgram renders an AST back to source text. Explicit
// parentheses survive as GroupExpr nodes, so expressions print without
// added brackets and re-parse to the same shape.
func FormatProgram(p *Program) string {
	var sb strings.Builder
	for _, line := range p.Lines {
		sb.WriteString(FormatLine(line))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// FormatLine renders one numbered line
func FormatLine(l *Line) string {
	parts := make([]string, 0, len(l.Statements))
	for _, st := range l.Statements {
		parts = append(parts, FormatStatement(st))
	}
	return fmt.Sprintf("%d %s", l.Number, strings.Join(parts, ": "))
}

// FormatStatement renders a single statement
func FormatStatement(st Statement) string {
	switch n := st.(type) {
	case *LetStmt:
		return fmt.Sprintf("%s=%s", FormatExpression(n.Target), FormatExpression(n.Value))

	case *PrintStmt:
		var sb strings.Builder
		sb.WriteString("PRINT")
		for i, item := range n.Items {
			if i == 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(FormatExpression(item.Expr))
			if item.Sep != 0 {
				sb.WriteByte(item.Sep)
			}
		}
		return sb.String()

	case *InputStmt:
		var sb strings.Builder
		sb.WriteString("INPUT ")
		if n.Prompt != "" {
			fmt.Fprintf(&sb, "%q;", n.Prompt)
		}
		for i, target := range n.Targets {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(target.Name)
		}
		return sb.String()

	case *IfStmt:
		var sb strings.Builder
		fmt.Fprintf(&sb, "IF %s THEN %s", FormatExpression(n.Cond), formatBranch(n.Then))
		if len(n.Else) > 0 {
			fmt.Fprintf(&sb, " ELSE %s", formatBranch(n.Else))
		}
		return sb.String()

	case *ForStmt:
		s := fmt.Sprintf("FOR %s=%s TO %s", n.Var.Name, FormatExpression(n.From), FormatExpression(n.To))
		if n.Step != nil {
			s += " STEP " + FormatExpression(n.Step)
		}
		return s

	case *NextStmt:
		if n.Var != nil {
			return "NEXT " + n.Var.Name
		}
		return "NEXT"

	case *WhileStmt:
		return "WHILE " + FormatExpression(n.Cond)
	case *WendStmt:
		return "WEND"

	case *GotoStmt:
		if n.Label != "" {
			return "GOTO " + n.Label
		}
		return fmt.Sprintf("GOTO %d", n.Line)
	case *GosubStmt:
		if n.Label != "" {
			return "GOSUB " + n.Label
		}
		return fmt.Sprintf("GOSUB %d", n.Line)

	case *ReturnStmt:
		return "RETURN"
	case *EndStmt:
		return "END"
	case *ClsStmt:
		return "CLS"
	case *ModeStmt:
		return "MODE " + FormatExpression(n.Mode)
	case *PenStmt:
		return "PEN " + FormatExpression(n.Pen)
	case *PaperStmt:
		return "PAPER " + FormatExpression(n.Paper)
	case *LocateStmt:
		return fmt.Sprintf("LOCATE %s,%s", FormatExpression(n.Col), FormatExpression(n.Row))
	case *PlotStmt:
		return fmt.Sprintf("PLOT %s,%s", FormatExpression(n.X), FormatExpression(n.Y))
	case *DrawStmt:
		return fmt.Sprintf("DRAW %s,%s", FormatExpression(n.X), FormatExpression(n.Y))
	case *PokeStmt:
		return fmt.Sprintf("POKE %s,%s", FormatExpression(n.Addr), FormatExpression(n.Value))
	case *CallStmt:
		return "CALL " + FormatExpression(n.Addr)

	case *SymbolStmt:
		parts := []string{FormatExpression(n.Char)}
		for _, row := range n.Rows {
			parts = append(parts, FormatExpression(row))
		}
		return "SYMBOL " + strings.Join(parts, ",")
	case *SymbolAfterStmt:
		return "SYMBOL AFTER " + FormatExpression(n.First)

	case *DimStmt:
		return fmt.Sprintf("DIM %s(%d)", n.Name, n.Bound)

	case *DataStmt:
		parts := make([]string, 0, len(n.Items))
		for _, item := range n.Items {
			parts = append(parts, fmt.Sprintf("%q", item))
		}
		return "DATA " + strings.Join(parts, ",")

	case *ReadStmt:
		parts := make([]string, 0, len(n.Targets))
		for _, target := range n.Targets {
			parts = append(parts, target.Name)
		}
		return "READ " + strings.Join(parts, ",")

	case *RestoreStmt:
		if n.HasLine {
			return fmt.Sprintf("RESTORE %d", n.Line)
		}
		return "RESTORE"

	case *LabelStmt:
		return "LABEL " + n.Name
	case *RemarkStmt:
		return "REM " + n.Text
	}

	return ""
}

func formatBranch(stmts []Statement) string {
	// An implicit GOTO prints back as the bare line number it came from
	if len(stmts) == 1 {
		if g, ok := stmts[0].(*GotoStmt); ok && g.Label == "" {
			return fmt.Sprintf("%d", g.Line)
		}
	}
	parts := make([]string, 0, len(stmts))
	for _, st := range stmts {
		parts = append(parts, FormatStatement(st))
	}
	return strings.Join(parts, ": ")
}

// FormatExpression renders an expression
func FormatExpression(e Expression) string {
	switch n := e.(type) {
	case *IntLit:
		return fmt.Sprintf("%d", n.Value)
	case *RealLit:
		return fmt.Sprintf("%g", n.Value)
	case *StrLit:
		return fmt.Sprintf("%q", n.Value)
	case *VarRef:
		return n.Name
	case *ArrayRef:
		return fmt.Sprintf("%s(%s)", n.Name, FormatExpression(n.Index))
	case *GroupExpr:
		return "(" + FormatExpression(n.Inner) + ")"
	case *UnaryExpr:
		if n.Op == "NOT" {
			return "NOT " + FormatExpression(n.Operand)
		}
		return "-" + FormatExpression(n.Operand)
	case *BinaryExpr:
		op := n.Op
		if op == "AND" || op == "OR" || op == "XOR" || op == "MOD" {
			op = " " + op + " "
		}
		return FormatExpression(n.Left) + op + FormatExpression(n.Right)
	case *CallExpr:
		if n.Func.MaxArgs == 0 {
			return n.Func.Name
		}
		parts := make([]string, 0, len(n.Args))
		for _, arg := range n.Args {
			parts = append(parts, FormatExpression(arg))
		}
		return n.Func.Name + "(" + strings.Join(parts, ",") + ")"
	}
	return ""
}
