package render

import "strings"

const (
	openDelim  = "{{"
	closeDelim = "}}"
	logoOpen   = "{{#if logoUrl}}"
	blockClose = "{{/if}}"
)

// resolveLogoBlocks keeps or drops the body of every {{#if logoUrl}}...{{/if}}
// block. A block without a closing tag is left verbatim, as are conditionals
// on any other variable.
func resolveLogoBlocks(s string, keep bool) string {
	if !strings.Contains(s, logoOpen) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for {
		start := strings.Index(s, logoOpen)
		if start < 0 {
			break
		}
		bodyStart := start + len(logoOpen)
		end := strings.Index(s[bodyStart:], blockClose)
		if end < 0 {
			break
		}
		end += bodyStart

		b.WriteString(s[:start])
		if keep {
			b.WriteString(s[bodyStart:end])
		}
		s = s[end+len(blockClose):]
	}
	b.WriteString(s)
	return b.String()
}

// substitute replaces every {{key}} present in vars in one left-to-right
// pass. Replacement text is written straight to the output and never scanned
// again. Keys missing from vars are copied through unchanged.
func substitute(s string, vars map[string]string) string {
	i := strings.Index(s, openDelim)
	if i < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i >= 0 {
		b.WriteString(s[:i])
		s = s[i:]

		end := strings.Index(s[len(openDelim):], closeDelim)
		if end < 0 {
			break
		}
		key := s[len(openDelim) : len(openDelim)+end]
		if v, ok := vars[key]; ok {
			b.WriteString(v)
			s = s[len(openDelim)+end+len(closeDelim):]
		} else {
			// advance one byte so "{{{name}}}" still matches the inner token
			b.WriteByte(s[0])
			s = s[1:]
		}
		i = strings.Index(s, openDelim)
	}
	b.WriteString(s)
	return b.String()
}
