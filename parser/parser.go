// ==============================================================================================
// FILE: parser/parser.go
// ==============================================================================================
// PACKAGE: parser
// PURPOSE: Recursive-descent parser with Pratt-style expression parsing. Converts the Lexer's
//          token stream into an ast.Program. L-values for "=" and "::=" share the same postfix
//          expression grammar as ordinary reads: a statement is parsed once as an expression and
//          then classified by the assignment operator (if any) that follows it.
// ==============================================================================================

package parser

import (
	"fmt"
	"strconv"

	"reaxl/ast"
	"reaxl/lexer"
	"reaxl/token"
)

// Precedence constants determine the order of operations in expressions. Higher values bind
// more tightly. TERNARY sits just above LOWEST so that "?" is consumed last, consistent with it
// being the lowest-precedence, right-associative operator in the grammar.
const (
	_ int = iota
	LOWEST
	TERNARY
	LOGIC_OR
	LOGIC_AND
	COMPARE
	SUM
	PRODUCT
	PREFIX
	POSTFIX // call, index, field access
)

var precedences = map[token.TokenType]int{
	token.QUESTION:        TERNARY,
	token.OR:              LOGIC_OR,
	token.AND:             LOGIC_AND,
	token.EQ:              COMPARE,
	token.NOT_EQ:          COMPARE,
	token.GT:              COMPARE,
	token.LT:              COMPARE,
	token.GT_EQ:           COMPARE,
	token.LT_EQ:           COMPARE,
	token.PLUS:            SUM,
	token.MINUS:           SUM,
	token.ASTERISK:        PRODUCT,
	token.SLASH:           PRODUCT,
	token.PERCENT:         PRODUCT,
	token.LPAREN:          POSTFIX,
	token.LBRACKET:        POSTFIX,
	token.DOT:             POSTFIX,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Parser holds the state of one parse over a token stream.
type Parser struct {
	l         *lexer.Lexer
	curToken  token.Token
	peekToken token.Token
	errors    []string

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

// New builds a Parser over l and primes curToken/peekToken.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l, errors: []string{}}

	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.INT, p.parseIntegerLiteral)
	p.registerPrefix(token.CHAR, p.parseCharLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.MINUS, p.parsePrefixExpression)
	p.registerPrefix(token.NOT, p.parsePrefixExpression)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.LBRACKET, p.parseArrayAllocExpression)
	p.registerPrefix(token.STRUCT, p.parseStructAllocExpression)

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	for _, t := range []token.TokenType{
		token.PLUS, token.MINUS, token.ASTERISK, token.SLASH, token.PERCENT,
		token.EQ, token.NOT_EQ, token.GT, token.LT, token.GT_EQ, token.LT_EQ,
		token.AND, token.OR,
	} {
		p.registerInfix(t, p.parseInfixExpression)
	}
	p.registerInfix(token.LPAREN, p.parseCallExpression)
	p.registerInfix(token.LBRACKET, p.parseIndexExpression)
	p.registerInfix(token.DOT, p.parseFieldAccessExpression)
	p.registerInfix(token.QUESTION, p.parseTernaryExpression)

	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) registerPrefix(t token.TokenType, fn prefixParseFn) { p.prefixParseFns[t] = fn }
func (p *Parser) registerInfix(t token.TokenType, fn infixParseFn)   { p.infixParseFns[t] = fn }

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekError(t token.TokenType) {
	p.errors = append(p.errors, fmt.Sprintf("line %d:%d - expected next token to be %s, got %s instead",
		p.peekToken.Line, p.peekToken.Column, t, p.peekToken.Type))
}

// Errors returns every syntax error accumulated during parsing.
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.curToken.Type]; ok {
		return pr
	}
	return LOWEST
}

// ParseProgram parses the full token stream into a Program.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	for !p.curTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		if p.peekTokenIs(token.SEMICOLON) {
			p.nextToken()
		}
		p.nextToken()
	}
	return program
}

func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.curToken}
	p.nextToken() // move past '{'
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		if p.peekTokenIs(token.SEMICOLON) {
			p.nextToken()
		}
		p.nextToken()
	}
	return block
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.STRUCT:
		return p.parseStructDefStatement()
	case token.FUNC:
		return p.parseFuncDefStatement()
	case token.IF:
		return p.parseIfStatement()
	case token.LOOP:
		return p.parseLoopStatement()
	case token.BREAK:
		return &ast.BreakStatement{Token: p.curToken}
	case token.RETURN:
		return p.parseReturnStatement()
	case token.PRINT:
		return p.parsePrintStatement(false)
	case token.PRINTLN:
		return p.parsePrintStatement(true)
	case token.IMPORT:
		return p.parseImportStatement()
	default:
		return p.parseAssignOrExpressionStatement()
	}
}

// parseAssignOrExpressionStatement parses the leading expression once, then classifies it by
// whichever of "=", ":=", "::=" (if any) immediately follows.
func (p *Parser) parseAssignOrExpressionStatement() ast.Statement {
	startTok := p.curToken
	target := p.parseExpression(LOWEST)
	if target == nil {
		return nil
	}
	switch p.peekToken.Type {
	case token.ASSIGN:
		p.nextToken()
		p.nextToken()
		return &ast.AssignStatement{Token: startTok, Target: target, Value: p.parseExpression(LOWEST)}
	case token.ASSIGN_REACTIVE:
		p.nextToken()
		p.nextToken()
		return &ast.ReactiveAssignStatement{Token: startTok, Target: target, Value: p.parseExpression(LOWEST)}
	case token.ASSIGN_BIND:
		ident, ok := target.(*ast.Identifier)
		if !ok {
			p.errors = append(p.errors, fmt.Sprintf("line %d:%d - ':=' requires a bare identifier on the left",
				startTok.Line, startTok.Column))
			return nil
		}
		p.nextToken()
		p.nextToken()
		return &ast.BindStatement{Token: startTok, Name: ident, Value: p.parseExpression(LOWEST)}
	default:
		return &ast.ExpressionStatement{Token: startTok, Expression: target}
	}
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{Token: p.curToken}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Consequence = p.parseBlockStatement()
	if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		if !p.expectPeek(token.LBRACE) {
			return nil
		}
		stmt.Alternative = p.parseBlockStatement()
	}
	return stmt
}

func (p *Parser) parseLoopStatement() ast.Statement {
	stmt := &ast.LoopStatement{Token: p.curToken}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{Token: p.curToken}
	if p.peekTokenIs(token.SEMICOLON) || p.peekTokenIs(token.RBRACE) {
		return stmt
	}
	p.nextToken()
	stmt.ReturnValue = p.parseExpression(LOWEST)
	return stmt
}

func (p *Parser) parsePrintStatement(newline bool) ast.Statement {
	stmt := &ast.PrintStatement{Token: p.curToken, Newline: newline}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	return stmt
}

func (p *Parser) parseImportStatement() ast.Statement {
	stmt := &ast.ImportStatement{Token: p.curToken}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Path = append(stmt.Path, p.curToken.Literal)
	for p.peekTokenIs(token.DOT) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		stmt.Path = append(stmt.Path, p.curToken.Literal)
	}
	return stmt
}

func (p *Parser) parseFuncDefStatement() ast.Statement {
	stmt := &ast.FuncDefStatement{Token: p.curToken}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	stmt.Parameters = p.parseFunctionParameters()
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	return stmt
}

func (p *Parser) parseFunctionParameters() []*ast.Identifier {
	var params []*ast.Identifier
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return params
	}
	p.nextToken()
	params = append(params, &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal})
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		params = append(params, &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal})
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return params
}

func (p *Parser) parseStructDefStatement() ast.Statement {
	stmt := &ast.StructDefStatement{Token: p.curToken}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	p.nextToken()
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		field, ok := p.parseStructField()
		if !ok {
			return nil
		}
		stmt.Fields = append(stmt.Fields, field)
		if p.peekTokenIs(token.SEMICOLON) {
			p.nextToken()
		}
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseStructField() (ast.StructField, bool) {
	if !p.curTokenIs(token.IDENT) {
		p.errors = append(p.errors, fmt.Sprintf("line %d:%d - expected field name, got %s",
			p.curToken.Line, p.curToken.Column, p.curToken.Type))
		return ast.StructField{}, false
	}
	field := ast.StructField{Name: &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}}
	switch p.peekToken.Type {
	case token.ASSIGN:
		field.Kind = ast.FieldMutable
		p.nextToken()
		p.nextToken()
		field.Value = p.parseExpression(LOWEST)
	case token.ASSIGN_BIND:
		field.Kind = ast.FieldBind
		p.nextToken()
		p.nextToken()
		field.Value = p.parseExpression(LOWEST)
	case token.ASSIGN_REACTIVE:
		field.Kind = ast.FieldReactive
		p.nextToken()
		p.nextToken()
		field.Value = p.parseExpression(LOWEST)
	default:
		field.Kind = ast.FieldMutable
	}
	return field, true
}

// parseExpression is the Pratt-parsing core shared by every expression position, including
// l-value paths (an l-value is just an expression the caller classifies afterwards).
func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.errors = append(p.errors, fmt.Sprintf("line %d:%d - no prefix parse function for %s",
			p.curToken.Line, p.curToken.Column, p.curToken.Type))
		return nil
	}
	leftExp := prefix()

	for !p.peekTokenIs(token.EOF) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}
	return leftExp
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	lit := &ast.IntegerLiteral{Token: p.curToken}
	val, err := strconv.ParseInt(p.curToken.Literal, 10, 32)
	if err != nil {
		p.errors = append(p.errors, fmt.Sprintf("line %d:%d - could not parse %q as integer",
			p.curToken.Line, p.curToken.Column, p.curToken.Literal))
		return nil
	}
	lit.Value = int32(val)
	return lit
}

func (p *Parser) parseCharLiteral() ast.Expression {
	runes := []rune(p.curToken.Literal)
	var v int32
	if len(runes) > 0 {
		v = int32(runes[0])
	}
	return &ast.CharLiteral{Token: p.curToken, Value: v}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	exp := &ast.PrefixExpression{Token: p.curToken, Operator: p.curToken.Literal}
	p.nextToken()
	exp.Right = p.parseExpression(PREFIX)
	return exp
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

// parseArrayAllocExpression handles "[size]" as a primary expression: a fresh array allocation.
func (p *Parser) parseArrayAllocExpression() ast.Expression {
	exp := &ast.ArrayAllocExpression{Token: p.curToken}
	p.nextToken()
	exp.Size = p.parseExpression(LOWEST)
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return exp
}

func (p *Parser) parseStructAllocExpression() ast.Expression {
	exp := &ast.StructAllocExpression{Token: p.curToken}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	exp.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	return exp
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	exp := &ast.InfixExpression{Token: p.curToken, Operator: p.curToken.Literal, Left: left}
	precedence := p.curPrecedence()
	p.nextToken()
	exp.Right = p.parseExpression(precedence)
	return exp
}

// parseTernaryExpression implements "cond ? then : else", right-associative via recursing just
// below the TERNARY precedence level for the else-branch, so a following "?" nests inside it.
func (p *Parser) parseTernaryExpression(cond ast.Expression) ast.Expression {
	exp := &ast.TernaryExpression{Token: p.curToken, Condition: cond}
	p.nextToken()
	exp.Then = p.parseExpression(LOWEST)
	if !p.expectPeek(token.COLON) {
		return nil
	}
	p.nextToken()
	exp.Else = p.parseExpression(TERNARY - 1)
	return exp
}

func (p *Parser) parseCallExpression(fn ast.Expression) ast.Expression {
	exp := &ast.CallExpression{Token: p.curToken, Function: fn}
	exp.Arguments = p.parseExpressionList(token.RPAREN)
	return exp
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	exp := &ast.IndexExpression{Token: p.curToken, Left: left}
	p.nextToken()
	exp.Index = p.parseExpression(LOWEST)
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return exp
}

func (p *Parser) parseFieldAccessExpression(left ast.Expression) ast.Expression {
	exp := &ast.FieldExpression{Token: p.curToken, Object: left}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	exp.Field = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	return exp
}

func (p *Parser) parseExpressionList(end token.TokenType) []ast.Expression {
	var list []ast.Expression
	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}
	p.nextToken()
	list = append(list, p.parseExpression(LOWEST))
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(LOWEST))
	}
	if !p.expectPeek(end) {
		return nil
	}
	return list
}
