package shader

import (
	"strings"
)

// declarationKeywords are the WGSL keywords that introduce a module-scope name.
var declarationKeywords = map[string]bool{
	"fn":       true,
	"var":      true,
	"const":    true,
	"override": true,
	"struct":   true,
	"alias":    true,
}

// Param is a single parameter of a WGSL function declaration.
type Param struct {
	Name string
	Type string
}

// Signature describes a WGSL function declaration.
type Signature struct {
	Name   string
	Params []Param

	// Result is the declared return type, or empty for functions without one.
	Result string
}

// significant returns the indices of every significant token.
func significant(tokens []Token) []int {
	idx := make([]int, 0, len(tokens))
	for i, t := range tokens {
		if t.Significant() {
			idx = append(idx, i)
		}
	}
	return idx
}

// DeclaredSymbols returns the names introduced at module scope by fn, var, const, override,
// struct and alias declarations, in declaration order and without duplicates.
// Names declared inside function bodies are not reported.
//
// Parameters:
//   - src: the WGSL source
//
// Returns:
//   - []string: the module-scope names
func DeclaredSymbols(src string) []string {
	tokens := Tokenize(src)
	sig := significant(tokens)
	seen := make(map[string]bool)
	var names []string
	depth := 0

	for k := 0; k < len(sig); k++ {
		t := tokens[sig[k]]
		switch t.Text {
		case "{":
			depth++
			continue
		case "}":
			depth--
			continue
		}
		if depth != 0 || t.Kind != TokenIdent || !declarationKeywords[t.Text] {
			continue
		}
		j := k + 1

		// var<private> name, var<uniform> name
		if t.Text == "var" && j < len(sig) && tokens[sig[j]].Text == "<" {
			for j < len(sig) && tokens[sig[j]].Text != ">" {
				j++
			}
			j++
		}
		if j < len(sig) && tokens[sig[j]].Kind == TokenIdent {
			name := tokens[sig[j]].Text
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// Rename rewrites every identifier token found in renames. Identifiers that follow a member
// access operator and field names inside struct declarations are left untouched, as are
// comments, attributes and any substring of a longer identifier.
//
// Parameters:
//   - src: the WGSL source
//   - renames: a map from old identifier to new identifier
//
// Returns:
//   - string: the rewritten source
func Rename(src string, renames map[string]string) string {
	if len(renames) == 0 {
		return src
	}
	tokens := Tokenize(src)
	var b strings.Builder
	b.Grow(len(src) + len(src)/8)

	prev := Token{Kind: TokenSpace}
	structDepth := -1
	depth := 0
	pendingStruct := false

	for i, t := range tokens {
		if !t.Significant() {
			b.WriteString(t.Text)
			continue
		}

		switch t.Text {
		case "{":
			depth++
			if pendingStruct {
				structDepth = depth
				pendingStruct = false
			}
		case "}":
			if depth == structDepth {
				structDepth = -1
			}
			depth--
		case "struct":
			pendingStruct = true
		}

		out := t.Text
		if t.Kind == TokenIdent && prev.Text != "." {
			if renamed, ok := renames[t.Text]; ok {
				member := structDepth == depth && structDepth > 0 && nextSignificant(tokens, i) == ":"
				if !member {
					out = renamed
				}
			}
		}
		b.WriteString(out)
		prev = t
	}
	return b.String()
}

// nextSignificant returns the text of the first significant token after index i.
func nextSignificant(tokens []Token, i int) string {
	for j := i + 1; j < len(tokens); j++ {
		if tokens[j].Significant() {
			return tokens[j].Text
		}
	}
	return ""
}

// Namespace prefixes every module-scope symbol declared in src, plus any extra names,
// using Rename. It returns the rewritten source and the applied renames.
//
// Parameters:
//   - src: the WGSL source
//   - prefix: the prefix to apply, e.g. "e0_"
//   - extra: additional identifiers to rename even though src does not declare them
//   - keep: identifiers that must never be renamed
//
// Returns:
//   - string: the namespaced source
//   - map[string]string: the renames that were applied
func Namespace(src, prefix string, extra []string, keep map[string]bool) (string, map[string]string) {
	renames := make(map[string]string)
	for _, name := range DeclaredSymbols(src) {
		if !keep[name] {
			renames[name] = prefix + name
		}
	}
	for _, name := range extra {
		if !keep[name] {
			renames[name] = prefix + name
		}
	}
	return Rename(src, renames), renames
}

// FindFunction locates the declaration of the named module-scope function.
//
// Parameters:
//   - src: the WGSL source
//   - name: the function name
//
// Returns:
//   - Signature: the parsed signature
//   - bool: true if the function is declared in src
func FindFunction(src, name string) (Signature, bool) {
	tokens := Tokenize(src)
	sig := significant(tokens)
	depth := 0
	for k := 0; k+2 < len(sig); k++ {
		t := tokens[sig[k]]
		switch t.Text {
		case "{":
			depth++
			continue
		case "}":
			depth--
			continue
		}
		if depth != 0 || t.Text != "fn" || tokens[sig[k+1]].Text != name || tokens[sig[k+2]].Text != "(" {
			continue
		}
		return parseSignature(tokens, sig, k+1), true
	}
	return Signature{}, false
}

// HasFunction reports whether src declares the named module-scope function.
func HasFunction(src, name string) bool {
	_, ok := FindFunction(src, name)
	return ok
}

// parseSignature parses "name ( params ) [-> result]" starting at sig[k].
func parseSignature(tokens []Token, sig []int, k int) Signature {
	s := Signature{Name: tokens[sig[k]].Text}
	k += 2
	var cur []string
	angle, paren := 0, 0
	flush := func() {
		if len(cur) == 0 {
			return
		}
		joined := strings.Join(cur, "")
		if name, typ, ok := strings.Cut(joined, ":"); ok {
			s.Params = append(s.Params, Param{Name: name, Type: typ})
		}
		cur = cur[:0]
	}

	for ; k < len(sig); k++ {
		t := tokens[sig[k]]
		switch {
		case t.Text == "(":
			paren++
		case t.Text == ")" && paren == 0:
			flush()
			k++
			if k+1 < len(sig) && tokens[sig[k]].Text == "-" && tokens[sig[k+1]].Text == ">" {
				var result []string
				for k += 2; k < len(sig) && tokens[sig[k]].Text != "{"; k++ {
					if tokens[sig[k]].Kind == TokenAttribute {
						if k+1 < len(sig) && tokens[sig[k+1]].Text == "(" {
							for k++; k < len(sig) && tokens[sig[k]].Text != ")"; k++ {
							}
						}
						continue
					}
					result = append(result, tokens[sig[k]].Text)
				}
				s.Result = strings.Join(result, "")
			}
			return s
		case t.Text == ")":
			paren--
		case t.Text == "<":
			angle++
		case t.Text == ">":
			angle--
		case t.Text == "," && angle == 0 && paren == 0:
			flush()
			continue
		}
		if t.Kind == TokenAttribute {
			// drop the attribute and its argument list
			if k+1 < len(sig) && tokens[sig[k+1]].Text == "(" {
				for k++; k < len(sig) && tokens[sig[k]].Text != ")"; k++ {
				}
			}
			continue
		}
		cur = append(cur, t.Text)
	}
	return s
}
