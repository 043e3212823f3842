// parser.go - recursive-descent parser over the Lexer's token stream,
// building nodes directly into the index-based Pool (see ast.go). The
// parser is a pure syntax pass: it interns strings/identifiers into the
// StringPool but does not touch the SymbolTable or FunctionTable, which
// belong to later pipeline stages.
package main

// Parser holds the token lookahead and the pools it writes into.
type Parser struct {
	lx     *Lexer
	strs   *StringPool
	pool   *Pool
	lits   *LiteralPool
	cur    Token
	Errors []CompilerError
}

func NewParser(src []byte, strs *StringPool, pool *Pool, lits *LiteralPool) *Parser {
	p := &Parser{lx: NewLexer(src), strs: strs, pool: pool, lits: lits}
	p.advance()
	return p
}

func (p *Parser) advance() {
	p.cur = p.lx.Next()
}

func (p *Parser) errAt(kind ErrorKind, detail string) {
	p.Errors = append(p.Errors, KindError(kind, detail, SourceLocation{Line: p.cur.Line}))
}

// expect consumes cur if it matches kind, else records a parse error and
// returns false without advancing past the bad token (so the caller can
// attempt statement-level recovery by skipping to the next '\').
func (p *Parser) expect(kind TokenKind, what string) bool {
	if p.cur.Kind != kind {
		p.errAt(KindParseUnexpectedToken, "expected "+what)
		return false
	}
	p.advance()
	return true
}

func (p *Parser) alloc(n Node) NodeIndex {
	n.Line = p.cur.Line
	idx, ok := p.pool.Alloc(n)
	if !ok {
		p.errAt(KindParsePoolExhausted, "node pool exhausted")
		return NullNode
	}
	return idx
}

// ParseProgram parses the entire token stream into a NodeProgram node
// whose Aux field holds the head of the NodeStmtList chain.
func (p *Parser) ParseProgram() NodeIndex {
	head := p.parseStmtList(tokenKindSetEOF)
	prog := Node{Kind: NodeProgram, Aux: uint32(head)}
	idx, ok := p.pool.Alloc(prog)
	if !ok {
		p.errAt(KindParsePoolExhausted, "node pool exhausted")
		return NullNode
	}
	return idx
}

// stopSet names the token kinds that end a statement list; either EOF (top
// level and do-blocks) or a closing ':' (function bodies, which close on
// ":>").
type stopSet int

const (
	tokenKindSetEOF stopSet = iota
	tokenKindSetColon
)

func (p *Parser) atStop(stop stopSet) bool {
	switch stop {
	case tokenKindSetEOF:
		return p.cur.Kind == TokEOF
	case tokenKindSetColon:
		return p.cur.Kind == TokColon || p.cur.Kind == TokEOF
	}
	return true
}

func (p *Parser) parseStmtList(stop stopSet) NodeIndex {
	var head, tail NodeIndex
	for !p.atStop(stop) {
		stmt := p.parseStmt()
		if stmt == NullNode {
			p.recoverToBackslash()
			continue
		}
		node := Node{Kind: NodeStmtList, Left: stmt}
		idx := p.alloc(node)
		if head == NullNode {
			head = idx
		} else {
			t := p.pool.Get(tail)
			t.Right = idx
			p.pool.Set(tail, t)
		}
		tail = idx
	}
	return head
}

// recoverToBackslash skips tokens until just past the next statement
// terminator, so one malformed statement doesn't cascade into every
// statement after it.
func (p *Parser) recoverToBackslash() {
	for p.cur.Kind != TokBackslash && p.cur.Kind != TokEOF {
		p.advance()
	}
	if p.cur.Kind == TokBackslash {
		p.advance()
	}
}

func (p *Parser) parseStmt() NodeIndex {
	switch p.cur.Kind {
	case TokVarUntyped, TokVarVariant, TokVarInt, TokVarFloat, TokVarString, TokVarBool, TokVarChar:
		return p.parseVarDef()
	case TokPrint, TokTxt, TokOut, TokFmt, TokDyn:
		return p.parsePrintStmt()
	case TokAsm:
		return p.parseAsmStmt()
	case TokPipe:
		return p.parseFuncDef()
	case TokDoBlock:
		return p.parseDoBlock()
	case TokCaret:
		return p.parseCallStmt()
	case TokGapCompute:
		return p.parseGapCompute()
	default:
		return p.parseExprOrTemporalStmt()
	}
}

// parseGapCompute handles `gap.compute ident \`: records a GAP metadata
// entry for a variable whose value lives (or may come to live) in the
// UNKNOWN zone, per ast.go's NodeGapCompute reservation.
func (p *Parser) parseGapCompute() NodeIndex {
	p.advance() // 'gap.compute'
	if p.cur.Kind != TokIdent {
		p.errAt(KindParseUnexpectedToken, "expected identifier after 'gap.compute'")
		return NullNode
	}
	name := p.cur.Text
	p.advance()
	off, length := p.strs.Intern(name)
	target := p.alloc(Node{Kind: NodeIdentRef, Left: NodeIndex(off), Right: NodeIndex(length)})
	p.expect(TokBackslash, "'\\' terminating gap.compute")
	return p.alloc(Node{Kind: NodeGapCompute, Left: target})
}

func (p *Parser) varTypeFor(kind TokenKind) VarType {
	switch kind {
	case TokVarVariant:
		return VarVariant
	case TokVarInt:
		return VarInt
	case TokVarFloat:
		return VarFloat
	case TokVarString:
		return VarString
	case TokVarBool:
		return VarBool
	case TokVarChar:
		return VarChar
	default:
		return VarUntyped
	}
}

// parseVarDef handles `var.T-name-[init_expr] \`. The name is interned into
// the string pool and stored in a NodeIdentRef; NodeVarDef.Left is the
// init expr and NodeVarDef.Right is the name-ident node.
func (p *Parser) parseVarDef() NodeIndex {
	vt := p.varTypeFor(p.cur.Kind)
	name := p.cur.Text
	p.advance()

	off, length := p.strs.Intern(name)
	nameNode := p.alloc(Node{Kind: NodeIdentRef, Left: NodeIndex(off), Right: NodeIndex(length)})

	if !p.expect(TokLBracket, "'[' after variable name") {
		return NullNode
	}
	init := p.parseExpr()
	if !p.expect(TokRBracket, "']' closing initializer") {
		return NullNode
	}
	p.expect(TokBackslash, "'\\' terminating var declaration")

	return p.alloc(Node{Kind: NodeVarDef, Aux: uint32(vt), Left: init, Right: nameNode})
}

// parsePrintStmt handles `print/ expr \` and the other output verbs,
// which all share the same statement shape.
func (p *Parser) parsePrintStmt() NodeIndex {
	p.advance() // verb
	if !p.expect(TokSlash, "'/' after output verb") {
		return NullNode
	}
	expr := p.parseExpr()
	p.expect(TokBackslash, "'\\' terminating output statement")
	return p.alloc(Node{Kind: NodePrintStmt, Left: expr})
}

// parseAsmStmt handles `asm/ "hex bytes" \`: the string literal's content
// is carried as-is; codegen decodes the hex pairs into raw instruction
// bytes.
func (p *Parser) parseAsmStmt() NodeIndex {
	p.advance() // 'asm'
	if !p.expect(TokSlash, "'/' after 'asm'") {
		return NullNode
	}
	if p.cur.Kind != TokString {
		p.errAt(KindParseUnexpectedToken, "expected a string of hex bytes after 'asm/'")
		return NullNode
	}
	off, length := p.strs.Intern(p.cur.Text)
	p.advance()
	p.expect(TokBackslash, "'\\' terminating asm statement")
	return p.alloc(Node{Kind: NodeInlineAsm, Left: NodeIndex(off), Right: NodeIndex(length)})
}

// parseFuncDef handles `|name param*| entry.can< stmt* :>` -- any bare
// identifiers between the function name and the closing pipe are its
// parameters, bound to the calling convention's argument registers in
// order.
func (p *Parser) parseFuncDef() NodeIndex {
	p.advance() // '|'
	if p.cur.Kind != TokIdent {
		p.errAt(KindParseUnexpectedToken, "expected function name")
		return NullNode
	}
	name := p.cur.Text
	p.advance()

	var paramHead, paramTail NodeIndex
	for p.cur.Kind == TokIdent {
		off, length := p.strs.Intern(p.cur.Text)
		p.advance()
		ident := p.alloc(Node{Kind: NodeIdentRef, Left: NodeIndex(off), Right: NodeIndex(length)})
		node := p.alloc(Node{Kind: NodeParamList, Left: ident})
		if paramHead == NullNode {
			paramHead = node
		} else {
			t := p.pool.Get(paramTail)
			t.Right = node
			p.pool.Set(paramTail, t)
		}
		paramTail = node
	}

	if !p.expect(TokPipe, "closing '|' after function name") {
		return NullNode
	}
	if !p.expect(TokFuncCan, "'entry.can' after function name") {
		return NullNode
	}
	if !p.expect(TokLAngle, "'<' opening function body") {
		return NullNode
	}
	body := p.parseStmtList(tokenKindSetColon)
	p.expect(TokColon, "':' closing function body")
	p.expect(TokRAngle, "'>' closing function body")

	off, _ := p.strs.Intern(name)
	bodyList := p.alloc(Node{Kind: NodeStmtList, Left: body})
	return p.alloc(Node{Kind: NodeFuncDef, Aux: PackFuncAux(uint16(off), bodyList), Left: paramHead})
}

// parseDoBlock handles `do/ stmt* \`. Its terminator is the block's own
// closing '\', which parseStmtList's EOF/colon stopSet doesn't model, so
// the loop is written out directly rather than reusing parseStmtList.
func (p *Parser) parseDoBlock() NodeIndex {
	p.advance() // 'do/'
	var head, tail NodeIndex
	for p.cur.Kind != TokBackslash && p.cur.Kind != TokEOF {
		stmt := p.parseStmt()
		if stmt == NullNode {
			p.recoverToBackslash()
			continue
		}
		node := Node{Kind: NodeStmtList, Left: stmt}
		idx := p.alloc(node)
		if head == NullNode {
			head = idx
		} else {
			t := p.pool.Get(tail)
			t.Right = idx
			p.pool.Set(tail, t)
		}
		tail = idx
	}
	p.expect(TokBackslash, "'\\' terminating do-block")
	return p.alloc(Node{Kind: NodeDoBlock, Left: head})
}

func (p *Parser) parseCallExpr() NodeIndex {
	p.advance() // '^'
	if p.cur.Kind != TokIdent {
		p.errAt(KindParseUnexpectedToken, "expected function name after '^'")
		return NullNode
	}
	name := p.cur.Text
	p.advance()
	if !p.expect(TokSlash, "'/' after call target") {
		return NullNode
	}
	off, length := p.strs.Intern(name)
	callee := p.alloc(Node{Kind: NodeIdentRef, Left: NodeIndex(off), Right: NodeIndex(length)})

	var head, tail NodeIndex
	for p.cur.Kind != TokBackslash && p.cur.Kind != TokEOF {
		arg := p.parseExpr()
		node := Node{Kind: NodeArgList, Left: arg}
		idx := p.alloc(node)
		if head == NullNode {
			head = idx
		} else {
			t := p.pool.Get(tail)
			t.Right = idx
			p.pool.Set(tail, t)
		}
		tail = idx
		if p.cur.Kind == TokComma {
			p.advance()
		}
	}
	return p.alloc(Node{Kind: NodeFuncCall, Left: callee, Right: head})
}

func (p *Parser) parseCallStmt() NodeIndex {
	call := p.parseCallExpr()
	p.expect(TokBackslash, "'\\' terminating call statement")
	return call
}

// parseExprOrTemporalStmt covers a bare expression statement and the
// temporal write form `expr >> ident \`.
func (p *Parser) parseExprOrTemporalStmt() NodeIndex {
	expr := p.parseExpr()
	if p.cur.Kind == TokShr {
		p.advance()
		if p.cur.Kind != TokIdent {
			p.errAt(KindParseUnexpectedToken, "expected identifier after '>>'")
			return NullNode
		}
		name := p.cur.Text
		p.advance()
		off, length := p.strs.Intern(name)
		target := p.alloc(Node{Kind: NodeIdentRef, Left: NodeIndex(off), Right: NodeIndex(length)})
		p.expect(TokBackslash, "'\\' terminating temporal write")
		return p.alloc(Node{Kind: NodeTemporalWrite, Left: expr, Right: target})
	}
	p.expect(TokBackslash, "'\\' terminating statement")
	return expr
}

// Precedence ladder, loosest binding first: `&&`/`||`, then `&&.`/`||.`,
// then equality (`==` `!=` `*=` `*!=`), then ordering (`*>` `*_<`), then
// shifts (`<<` `<<.` `>>.`; bare `>>` stays a statement-level temporal
// connector and is never consumed here), then `+`/`-`, then `*`/`/`/`%`,
// then unary/primary. Each level is the same left-associative loop over
// its operator set.
func (p *Parser) binaryLevel(next func() NodeIndex, ops ...TokenKind) NodeIndex {
	left := next()
	for {
		matched := false
		for _, op := range ops {
			if p.cur.Kind == op {
				p.advance()
				right := next()
				left = p.alloc(Node{Kind: NodeBinaryOp, Aux: uint32(op), Left: left, Right: right})
				matched = true
				break
			}
		}
		if !matched {
			return left
		}
	}
}

func (p *Parser) parseExpr() NodeIndex {
	return p.binaryLevel(p.parseDottedLogical, TokAndAnd, TokOrOr)
}

func (p *Parser) parseDottedLogical() NodeIndex {
	return p.binaryLevel(p.parseEquality, TokAndAndDot, TokOrOrDot)
}

func (p *Parser) parseEquality() NodeIndex {
	return p.binaryLevel(p.parseOrdering, TokEqEq, TokNotEq, TokStarAssign, TokStarNE)
}

func (p *Parser) parseOrdering() NodeIndex {
	return p.binaryLevel(p.parseShift, TokStarArrow, TokStarUnder)
}

func (p *Parser) parseShift() NodeIndex {
	return p.binaryLevel(p.parseAdditive, TokShl, TokShlDot, TokShrDot)
}

func (p *Parser) parseAdditive() NodeIndex {
	return p.binaryLevel(p.parseTerm, TokPlus, TokMinus)
}

func (p *Parser) parseTerm() NodeIndex {
	return p.binaryLevel(p.parseFactor, TokStar, TokSlash, TokPercent)
}

func (p *Parser) parseFactor() NodeIndex {
	switch p.cur.Kind {
	case TokNumber:
		tag, index := encodeNumberLiteral(p.lits, p.cur.Text)
		n := p.alloc(Node{Kind: NodeNumberLit, Aux: tag, Left: index})
		p.advance()
		return n
	case TokString:
		off, length := p.strs.Intern(p.cur.Text)
		n := p.alloc(Node{Kind: NodeStringLit, Left: NodeIndex(off), Right: NodeIndex(length)})
		p.advance()
		return n
	case TokIdent:
		off, length := p.strs.Intern(p.cur.Text)
		n := p.alloc(Node{Kind: NodeIdentRef, Left: NodeIndex(off), Right: NodeIndex(length)})
		p.advance()
		return n
	case TokMinus:
		p.advance()
		operand := p.parseFactor()
		return p.alloc(Node{Kind: NodeUnaryOp, Aux: uint32(TokMinus), Left: operand})
	case TokCaret:
		return p.parseCallExpr()
	case TokLAngle:
		p.advance() // '<'
		if p.cur.Kind != TokIdent {
			p.errAt(KindParseUnexpectedToken, "expected identifier after '<'")
			return NullNode
		}
		name := p.cur.Text
		p.advance()
		off, length := p.strs.Intern(name)
		target := p.alloc(Node{Kind: NodeIdentRef, Left: NodeIndex(off), Right: NodeIndex(length)})
		return p.alloc(Node{Kind: NodeTemporalRead, Left: target})
	default:
		p.errAt(KindParseUnexpectedToken, "expected expression")
		return NullNode
	}
}
