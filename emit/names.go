package emit

import (
	"fmt"
	"go/token"
	"strings"
	"unicode"

	"github.com/a-peyrard/koragraph/set"
	"github.com/a-peyrard/koragraph/str"
)

// findSuitableAlias gives an import alias not in aliases. On collision the first letter of the
// previous path segments is prepended, one segment at a time, then a counter is appended.
func findSuitableAlias(pkg string, aliases set.Set[string]) string {
	tokens := strings.Split(pkg, "/")
	alias := identifier(tokens[len(tokens)-1])
	if alias == "" {
		alias = "pkg"
	}
	for i := len(tokens) - 2; i >= 0 && aliases.Contains(alias); i-- {
		if prefix := identifier(tokens[i]); prefix != "" {
			alias = prefix[:1] + alias
		}
	}
	if aliases.Contains(alias) {
		base := alias
		for n := 0; aliases.Contains(alias); n++ {
			alias = fmt.Sprintf("%s%d", base, n)
		}
	}
	return alias
}

// identifier keeps the lower cased letters and digits of a path segment.
func identifier(segment string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(segment) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	id := b.String()
	if id != "" && unicode.IsDigit(rune(id[0])) {
		id = "_" + id
	}
	return id
}

// generateFQN qualifies a type name with the alias of its import path, a pointer marker stays in
// front.
func generateFQN(importPath, typeName string, importWithAlias map[string]string) string {
	if importPath == "" {
		return typeName
	}
	alias, found := importWithAlias[importPath]
	if !found || alias == "" {
		return typeName
	}
	if strings.HasPrefix(typeName, "*") {
		return "*" + alias + "." + strings.TrimPrefix(typeName, "*")
	}
	return alias + "." + typeName
}

// uniqueName derives a lower camel case Go identifier from a description, suffixed with a
// counter when already taken.
func uniqueName(description string, taken set.Set[string]) string {
	name := str.ToLowerCamelCase(description)
	if name == "" {
		name = "component"
	}
	if token.IsKeyword(name) {
		name += "_"
	}
	candidate := name
	for n := 2; taken.Contains(candidate); n++ {
		candidate = fmt.Sprintf("%s%d", name, n)
	}
	taken.Add(candidate)
	return candidate
}

func exported(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
