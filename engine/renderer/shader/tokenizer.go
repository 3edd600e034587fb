package shader

import "strings"

// TokenKind classifies a WGSL token.
type TokenKind int

const (
	// TokenIdent is an identifier or keyword.
	TokenIdent TokenKind = iota

	// TokenNumber is a numeric literal, including any type suffix.
	TokenNumber

	// TokenPunct is a single punctuation or operator character.
	TokenPunct

	// TokenSpace is a run of whitespace.
	TokenSpace

	// TokenComment is a line comment or a (possibly nested) block comment.
	TokenComment

	// TokenAttribute is an attribute name including its leading @, e.g. "@group".
	TokenAttribute
)

// Token is a lexical unit of WGSL source. Concatenating the Text of every token
// returned by Tokenize reproduces the input exactly.
type Token struct {
	Kind TokenKind
	Text string

	// Offset is the byte offset of the token in the source.
	Offset int
}

// Significant reports whether the token carries meaning for the parser.
func (t Token) Significant() bool {
	return t.Kind != TokenSpace && t.Kind != TokenComment
}

// Tokenize splits WGSL source into tokens. It never fails: bytes that do not start
// any other token are emitted as single-character punctuation.
//
// Parameters:
//   - src: the WGSL source
//
// Returns:
//   - []Token: the tokens in source order
func Tokenize(src string) []Token {
	tokens := make([]Token, 0, len(src)/3)
	i := 0
	for i < len(src) {
		start := i
		c := src[i]
		var kind TokenKind
		switch {
		case isSpace(c):
			for i < len(src) && isSpace(src[i]) {
				i++
			}
			kind = TokenSpace
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				i = len(src)
			} else {
				i += end
			}
			kind = TokenComment
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			i = skipBlockComment(src, i)
			kind = TokenComment
		case isIdentStart(c):
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			kind = TokenIdent
		case c == '@' && i+1 < len(src) && isIdentStart(src[i+1]):
			i++
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			kind = TokenAttribute
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			i = scanNumber(src, i)
			kind = TokenNumber
		default:
			i++
			kind = TokenPunct
		}
		tokens = append(tokens, Token{Kind: kind, Text: src[start:i], Offset: start})
	}
	return tokens
}

// skipBlockComment returns the offset just past the block comment starting at i.
// WGSL block comments nest. An unterminated comment runs to the end of the source.
func skipBlockComment(src string, i int) int {
	depth := 0
	for i < len(src) {
		switch {
		case strings.HasPrefix(src[i:], "/*"):
			depth++
			i += 2
		case strings.HasPrefix(src[i:], "*/"):
			depth--
			i += 2
			if depth == 0 {
				return i
			}
		default:
			i++
		}
	}
	return i
}

func scanNumber(src string, i int) int {
	if strings.HasPrefix(src[i:], "0x") || strings.HasPrefix(src[i:], "0X") {
		i += 2
		for i < len(src) && (isHexDigit(src[i]) || src[i] == '.') {
			i++
		}
	} else {
		for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
			i++
		}
		if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
			i++
			if i < len(src) && (src[i] == '+' || src[i] == '-') {
				i++
			}
			for i < len(src) && isDigit(src[i]) {
				i++
			}
		}
	}
	if i < len(src) && strings.IndexByte("fhiu", src[i]) >= 0 {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
