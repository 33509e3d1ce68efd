// Package parser implements a recursive-descent parser for blocklang,
// turning a lexer.Lexer's token stream into the pkg/ast tree pkg/compiler
// consumes.
//
// Parser Architecture:
//
// The parser keeps a two-token lookahead window (curTok, peekTok) so it can
// decide, for example, whether an identifier starts an assignment or a bare
// expression statement without having to backtrack.
//
// Grammar:
//
//	Block       := Stmt*
//	Stmt        := Assign | If | While | FuncDef | Return | DoBlock | ExprStmt
//	DoBlock     := "do" Block "end"
//	Assign      := IDENT "=" Expr
//	If          := "if" Expr DoBlock ("else" DoBlock)?
//	While       := "while" Expr "do" Block "end"
//	FuncDef     := "def" IDENT "(" (IDENT ("," IDENT)*)? ")" "do" Block "end"
//	Return      := "return" Expr?
//	ExprStmt    := Expr
//	Expr        := Comparison
//	Comparison  := Additive (("==" | "!=" | "<" | "<=" | ">" | ">=") Additive)*
//	Additive    := Multiplicative (("+" | "-") Multiplicative)*
//	Multiplicative := Primary (("*" | "/" | "%") Primary)*
//	Primary     := INTEGER | STRING | "true" | "false" | "nil" | IDENT
//	             | IDENT "(" (Expr ("," Expr)*)? ")" | "(" Expr ")"
//
// Same-precedence binary operators are left-associative: parsing is driven
// by an iterative loop at each precedence level, not right recursion, so
// "1 - 2 - 3" builds as (1 - 2) - 3.
//
// Error Handling:
//
// Errors accumulate in the errors slice rather than aborting the parse, so
// Parse can report more than one syntax error from a single pass; Parse
// itself still returns a non-nil error summarizing them.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blocklang/blocklang/pkg/ast"
	"github.com/blocklang/blocklang/pkg/lexer"
)

// Parser is a single-use recursive-descent parser: construct one with New
// per source snippet.
type Parser struct {
	l       *lexer.Lexer
	curTok  lexer.Token
	peekTok lexer.Token
	errors  []string
}

// New returns a Parser with its two-token lookahead window already
// populated from input.
func New(input string) *Parser {
	p := &Parser{l: lexer.New(input)}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curTok = p.peekTok
	p.peekTok = p.l.NextToken()
}

func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, fmt.Sprintf("line %d, column %d: %s", p.curTok.Line, p.curTok.Column, msg))
}

// Errors returns every syntax error accumulated so far.
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) expect(tt lexer.TokenType) bool {
	if p.curTok.Type != tt {
		p.addError(fmt.Sprintf("expected %s, got %s (%q)", tt, p.curTok.Type, p.curTok.Literal))
		return false
	}
	p.nextToken()
	return true
}

// Parse parses the whole input as one top-level block and returns it, or an
// error summarizing every syntax error encountered.
func (p *Parser) Parse() (*ast.BlockStmt, error) {
	block := p.parseBlockUntil(lexer.TokenEOF)
	if len(p.errors) > 0 {
		return block, fmt.Errorf("parser errors:\n%s", strings.Join(p.errors, "\n"))
	}
	return block, nil
}

// parseBlockUntil parses statements until the current token is one of the
// given stop token types, without consuming the stop token.
func (p *Parser) parseBlockUntil(stop ...lexer.TokenType) *ast.BlockStmt {
	block := &ast.BlockStmt{}
	for !p.atAny(stop...) {
		if p.curTok.Type == lexer.TokenEOF {
			p.addError("unexpected end of input")
			break
		}
		stmt := p.parseStatement()
		if stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
	}
	return block
}

func (p *Parser) atAny(types ...lexer.TokenType) bool {
	for _, tt := range types {
		if p.curTok.Type == tt {
			return true
		}
	}
	return false
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.curTok.Type {
	case lexer.TokenIf:
		return p.parseIfStmt()
	case lexer.TokenWhile:
		return p.parseWhileStmt()
	case lexer.TokenDef:
		return p.parseFuncDefStmt()
	case lexer.TokenReturn:
		return p.parseReturnStmt()
	case lexer.TokenDo:
		return p.parseDoBlockStmt()
	case lexer.TokenIdentifier:
		if p.peekTok.Type == lexer.TokenAssign {
			return p.parseAssignStmt()
		}
		return p.parseExprStmt()
	default:
		return p.parseExprStmt()
	}
}

// parseDoBlockStmt parses a standalone "do" ... "end" block nested in a
// statement position (every program in spec.md's examples is itself a
// single top-level block of this form, so Block must be parseable as a
// statement, not only as the body of if/while/def).
func (p *Parser) parseDoBlockStmt() ast.Statement {
	p.nextToken() // consume "do"
	block := p.parseBlockUntil(lexer.TokenEnd)
	p.expect(lexer.TokenEnd)
	return block
}

func (p *Parser) parseAssignStmt() ast.Statement {
	name := p.curTok.Literal
	p.nextToken() // consume IDENT
	p.nextToken() // consume "="
	expr := p.parseExpr()
	return &ast.AssignStmt{Name: name, Expr: expr}
}

func (p *Parser) parseExprStmt() ast.Statement {
	expr := p.parseExpr()
	return &ast.ExprStmt{Expr: expr}
}

func (p *Parser) parseIfStmt() ast.Statement {
	p.nextToken() // consume "if"
	cond := p.parseExpr()
	if !p.expect(lexer.TokenDo) {
		return &ast.IfStmt{Cond: cond}
	}
	then := p.parseBlockUntil(lexer.TokenEnd)
	p.expect(lexer.TokenEnd)

	var otherwise ast.Statement
	if p.curTok.Type == lexer.TokenElse {
		p.nextToken() // consume "else"
		if p.expect(lexer.TokenDo) {
			otherwise = p.parseBlockUntil(lexer.TokenEnd)
			p.expect(lexer.TokenEnd)
		}
	}
	return &ast.IfStmt{Cond: cond, Then: then, Otherwise: otherwise}
}

func (p *Parser) parseWhileStmt() ast.Statement {
	p.nextToken() // consume "while"
	cond := p.parseExpr()
	if !p.expect(lexer.TokenDo) {
		return &ast.WhileStmt{Cond: cond}
	}
	body := p.parseBlockUntil(lexer.TokenEnd)
	p.expect(lexer.TokenEnd)
	return &ast.WhileStmt{Cond: cond, Body: body}
}

func (p *Parser) parseFuncDefStmt() ast.Statement {
	p.nextToken() // consume "def"
	name := p.curTok.Literal
	p.expect(lexer.TokenIdentifier)
	p.expect(lexer.TokenLParen)

	var params []string
	for p.curTok.Type != lexer.TokenRParen && p.curTok.Type != lexer.TokenEOF {
		params = append(params, p.curTok.Literal)
		p.expect(lexer.TokenIdentifier)
		if p.curTok.Type == lexer.TokenComma {
			p.nextToken()
		}
	}
	p.expect(lexer.TokenRParen)
	p.expect(lexer.TokenDo)
	body := p.parseBlockUntil(lexer.TokenEnd)
	p.expect(lexer.TokenEnd)
	return &ast.FuncDefStmt{Name: name, Params: params, Body: body}
}

func (p *Parser) parseReturnStmt() ast.Statement {
	p.nextToken() // consume "return"
	if p.startsExpr() {
		expr := p.parseExpr()
		return &ast.ReturnStmt{Expr: expr}
	}
	return &ast.ReturnStmt{}
}

// startsExpr reports whether the current token could begin an expression,
// used to distinguish a bare "return" from "return <expr>" without a
// dedicated terminator token.
func (p *Parser) startsExpr() bool {
	switch p.curTok.Type {
	case lexer.TokenEnd, lexer.TokenElse, lexer.TokenEOF:
		return false
	default:
		return true
	}
}

func (p *Parser) parseExpr() ast.Expression {
	return p.parseComparison()
}

var comparisonOps = map[lexer.TokenType]ast.BinaryOperator{
	lexer.TokenEqual:      ast.Eq,
	lexer.TokenNotEqual:   ast.Neq,
	lexer.TokenLess:       ast.Lt,
	lexer.TokenLessEq:     ast.Le,
	lexer.TokenGreater:    ast.Gt,
	lexer.TokenGreaterEq:  ast.Ge,
}

func (p *Parser) parseComparison() ast.Expression {
	left := p.parseAdditive()
	for {
		op, ok := comparisonOps[p.curTok.Type]
		if !ok {
			return left
		}
		p.nextToken()
		right := p.parseAdditive()
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseAdditive() ast.Expression {
	left := p.parseMultiplicative()
	for {
		var op ast.BinaryOperator
		switch p.curTok.Type {
		case lexer.TokenPlus:
			op = ast.Add
		case lexer.TokenMinus:
			op = ast.Sub
		default:
			return left
		}
		p.nextToken()
		right := p.parseMultiplicative()
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseMultiplicative() ast.Expression {
	left := p.parsePrimary()
	for {
		var op ast.BinaryOperator
		switch p.curTok.Type {
		case lexer.TokenStar:
			op = ast.Mul
		case lexer.TokenSlash:
			op = ast.Div
		case lexer.TokenPercent:
			op = ast.Mod
		default:
			return left
		}
		p.nextToken()
		right := p.parsePrimary()
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parsePrimary() ast.Expression {
	switch p.curTok.Type {
	case lexer.TokenInteger:
		return p.parseIntLiteral()
	case lexer.TokenString:
		lit := &ast.StringLiteral{Value: p.curTok.Literal}
		p.nextToken()
		return lit
	case lexer.TokenTrue:
		p.nextToken()
		return &ast.NameExpr{Name: "true"}
	case lexer.TokenFalse:
		p.nextToken()
		return &ast.NameExpr{Name: "false"}
	case lexer.TokenNil:
		p.nextToken()
		return &ast.NameExpr{Name: "nil"}
	case lexer.TokenLParen:
		p.nextToken()
		expr := p.parseExpr()
		p.expect(lexer.TokenRParen)
		return expr
	case lexer.TokenIdentifier:
		return p.parseIdentOrCall()
	default:
		p.addError(fmt.Sprintf("unexpected token %s (%q) in expression", p.curTok.Type, p.curTok.Literal))
		p.nextToken()
		return &ast.IntLiteral{Value: 0}
	}
}

func (p *Parser) parseIntLiteral() ast.Expression {
	val, err := strconv.ParseInt(p.curTok.Literal, 10, 64)
	if err != nil {
		p.addError(fmt.Sprintf("invalid integer literal %q: %v", p.curTok.Literal, err))
	}
	p.nextToken()
	return &ast.IntLiteral{Value: val}
}

func (p *Parser) parseIdentOrCall() ast.Expression {
	name := p.curTok.Literal
	p.nextToken()
	if p.curTok.Type != lexer.TokenLParen {
		return &ast.NameExpr{Name: name}
	}

	p.nextToken() // consume "("
	var args []ast.Expression
	for p.curTok.Type != lexer.TokenRParen && p.curTok.Type != lexer.TokenEOF {
		args = append(args, p.parseExpr())
		if p.curTok.Type == lexer.TokenComma {
			p.nextToken()
		}
	}
	p.expect(lexer.TokenRParen)
	return &ast.FunCallExpr{Callee: &ast.NameExpr{Name: name}, Args: args}
}
