package cascade

import "strings"

// Paths are sequences of segments delimited by '/' or '\'. A backslash
// followed by a delimiter escapes it into a literal character of the segment
// name; any other '/' or '\' splits. "/" and "" yield zero segments and are
// rejected by every item and child operation.

// EscapeName escapes the path delimiters in a single segment name so that it
// survives splitting: '\' becomes "\\" and '/' becomes "\/".
func EscapeName(name string) string {
	if !strings.ContainsAny(name, `/\`) {
		return name
	}
	var b strings.Builder
	b.Grow(len(name) + 2)
	for i := 0; i < len(name); i++ {
		if name[i] == '/' || name[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(name[i])
	}
	return b.String()
}

// UnescapeName is the inverse of EscapeName.
func UnescapeName(name string) string {
	if !strings.Contains(name, `\`) {
		return name
	}
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		if name[i] == '\\' && i+1 < len(name) && (name[i+1] == '/' || name[i+1] == '\\') {
			i++
		}
		b.WriteByte(name[i])
	}
	return b.String()
}

// splitPath splits a path into unescaped segments. It returns ErrEmptyPath
// when no segments remain after splitting.
func splitPath(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyPath
	}

	var segments []string
	var b strings.Builder
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case c == '\\' && i+1 < len(path) && (path[i+1] == '/' || path[i+1] == '\\'):
			// Escaped delimiter, keep the literal character.
			b.WriteByte(path[i+1])
			i++
		case c == '/' || c == '\\':
			if b.Len() > 0 {
				segments = append(segments, b.String())
				b.Reset()
			}
		default:
			b.WriteByte(c)
		}
	}
	if b.Len() > 0 {
		segments = append(segments, b.String())
	}

	if len(segments) == 0 {
		return nil, ErrEmptyPath
	}
	return segments, nil
}

// joinPath appends an escaped segment name to a parent path.
func joinPath(parent, name string) string {
	if parent == "/" {
		return "/" + EscapeName(name)
	}
	return parent + "/" + EscapeName(name)
}
