package parser

import (
	"regexp"

	"rush/internal/lexer"
	"rush/internal/shellerr"
)

var assignRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*=`)

// Parser consumes tokens from a lexer.Lexer one at a time, keeping a single
// token of lookahead the way a hand-written recursive-descent parser over a
// small grammar naturally does.
type Parser struct {
	lx   *lexer.Lexer
	tok  lexer.Token
	peek lexer.Token
}

// New creates a parser over lx, priming both lookahead slots.
func New(lx *lexer.Lexer) (*Parser, error) {
	p := &Parser{lx: lx}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	p.tok = p.peek
	tok, err := p.lx.NextToken()
	if err != nil {
		return err
	}
	p.peek = tok
	return nil
}

// Parse builds a CommandTree from the full token stream, per spec.md §4.2's
// grammar: line = and_or (';' and_or)* [';' | '&'].
func Parse(input string) (*CommandTree, error) {
	lx := lexer.New(input)
	p, err := New(lx)
	if err != nil {
		return nil, err
	}
	return p.parseTree()
}

func (p *Parser) parseTree() (*CommandTree, error) {
	tree := &CommandTree{}
	for {
		p.skipNewlines()
		if p.tok.Type == EOFType() {
			break
		}
		andOr, err := p.parseAndOr()
		if err != nil {
			return nil, err
		}
		sep := SeparatorNone
		switch p.tok.Type {
		case lexer.Semi:
			sep = SeparatorSemi
			if err := p.advance(); err != nil {
				return nil, err
			}
		case lexer.Amp:
			sep = SeparatorAmp
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		tree.Statements = append(tree.Statements, Statement{AndOr: andOr, Separator: sep})
		if p.tok.Type == lexer.Newline {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if p.tok.Type == EOFType() {
			break
		}
	}
	return tree, nil
}

func EOFType() lexer.Type { return lexer.EOF }

func (p *Parser) skipNewlines() {
	for p.tok.Type == lexer.Newline {
		p.advance()
	}
}

// parseAndOr parses and_or = pipeline (('&&'|'||') pipeline)*.
func (p *Parser) parseAndOr() (*AndOr, error) {
	first, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	ao := &AndOr{Parts: []AndOrPart{{Op: OpNone, Pipeline: first}}}
	for p.tok.Type == lexer.AndIf || p.tok.Type == lexer.OrIf {
		op := OpAnd
		if p.tok.Type == lexer.OrIf {
			op = OpOr
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		p.skipNewlines()
		pl, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		ao.Parts = append(ao.Parts, AndOrPart{Op: op, Pipeline: pl})
	}
	return ao, nil
}

// parsePipeline parses pipeline = simple ('|' simple)*.
func (p *Parser) parsePipeline() (*Pipeline, error) {
	first, err := p.parseSimple()
	if err != nil {
		return nil, err
	}
	pl := &Pipeline{Commands: []*SimpleCommand{first}}
	for p.tok.Type == lexer.Pipe {
		if err := p.advance(); err != nil {
			return nil, err
		}
		p.skipNewlines()
		cmd, err := p.parseSimple()
		if err != nil {
			return nil, err
		}
		pl.Commands = append(pl.Commands, cmd)
	}
	return pl, nil
}

// parseSimple parses simple = (ASSIGN)* WORD (WORD|redir)* | redir+.
func (p *Parser) parseSimple() (*SimpleCommand, error) {
	cmd := &SimpleCommand{}
	sawWord := false

	for {
		switch {
		case p.tok.Type.IsRedirOp():
			r, err := p.parseRedirection()
			if err != nil {
				return nil, err
			}
			cmd.Redirs = append(cmd.Redirs, r)
		case p.tok.Type == lexer.Word:
			if !sawWord {
				if name, value, ok := splitAssignment(p.tok); ok {
					cmd.Assigns = append(cmd.Assigns, Assignment{Name: name, Value: value})
					if err := p.advance(); err != nil {
						return nil, err
					}
					continue
				}
			}
			sawWord = true
			cmd.Words = append(cmd.Words, p.tok)
			if err := p.advance(); err != nil {
				return nil, err
			}
		default:
			if !sawWord && len(cmd.Assigns) == 0 && len(cmd.Redirs) == 0 {
				return nil, &shellerr.ParseError{Kind: shellerr.Unexpected, Near: p.tok.Raw}
			}
			return cmd, nil
		}
	}
}

// parseRedirection parses one redirection operator and its target word.
func (p *Parser) parseRedirection() (Redirection, error) {
	op := p.tok.Type
	fd := p.tok.FD
	if err := p.advance(); err != nil {
		return Redirection{}, err
	}
	if p.tok.Type != lexer.Word {
		return Redirection{}, &shellerr.ParseError{Kind: shellerr.BadRedirect, Near: p.tok.Raw}
	}
	target := p.tok
	if err := p.advance(); err != nil {
		return Redirection{}, err
	}
	return Redirection{FD: fd, Op: op, Target: target}, nil
}

// splitAssignment reports whether w is a NAME=value assignment word: the
// first segment must be bare (unquoted) text starting with a POSIX name
// followed by '=', so `FOO=bar`, `FOO=`, and `FOO="$BAR"` all qualify but
// `"FOO"=bar` (quoted name) does not.
func splitAssignment(w lexer.Token) (string, lexer.Token, bool) {
	if len(w.Segments) == 0 || w.Segments[0].Kind != lexer.Bare {
		return "", lexer.Token{}, false
	}
	loc := assignRE.FindStringIndex(w.Segments[0].Text)
	if loc == nil || loc[0] != 0 {
		return "", lexer.Token{}, false
	}
	name := w.Segments[0].Text[:loc[1]-1]
	rest := w.Segments[0].Text[loc[1]:]

	value := lexer.Token{Type: lexer.Word, FD: -1}
	if rest != "" {
		value.Segments = append(value.Segments, lexer.Segment{Kind: lexer.Bare, Text: rest})
	}
	value.Segments = append(value.Segments, w.Segments[1:]...)
	return name, value, true
}
