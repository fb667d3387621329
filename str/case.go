package str

import "strings"

// ToScreamingSnakeCase transforms a given string into screaming snake case format
func ToScreamingSnakeCase(in string) string {
	in = strings.TrimSpace(in)
	if len(in) == 0 {
		return in
	}

	sb := strings.Builder{}
	sb.Grow(len(in) + len(in)/3) // estimate space for underscores

	for i, b := range []byte(in) {
		shouldWrite := true
		needsSeparator := false

		switch {
		case 'a' <= b && b <= 'z':
			b -= 'a' - 'A' // convert to uppercase
		case 'A' <= b && b <= 'Z':
			needsSeparator = true
		case b == '_' || b == '-':
			shouldWrite = false
			needsSeparator = true
		case '0' <= b && b <= '9':
			needsSeparator = true
		}

		if i > 0 && needsSeparator {
			sb.WriteByte('_')
		}

		if shouldWrite {
			sb.WriteByte(b)
		}
	}

	return sb.String()
}

// ToLowerCamelCase transforms an identifier (possibly dotted, snake or kebab cased) into a
// lower camel case Go identifier, e.g. "repo.UserRepo" becomes "repoUserRepo".
func ToLowerCamelCase(in string) string {
	in = strings.TrimSpace(in)
	sb := strings.Builder{}
	sb.Grow(len(in))

	upperNext := false
	for _, b := range []byte(in) {
		isLetter := ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
		isDigit := '0' <= b && b <= '9'
		if !isLetter && !isDigit {
			upperNext = sb.Len() > 0
			continue
		}

		switch {
		case sb.Len() == 0 && isDigit:
			sb.WriteByte('_')
		case sb.Len() == 0 && 'A' <= b && b <= 'Z':
			b += 'a' - 'A'
		case upperNext && 'a' <= b && b <= 'z':
			b -= 'a' - 'A'
		}
		upperNext = false
		sb.WriteByte(b)
	}

	return sb.String()
}
