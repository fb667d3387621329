package gosource

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

const (
	componentAnnotation   = "component"
	interceptorAnnotation = "interceptor"
	implicitAnnotation    = "implicit"
	rootAnnotation        = "root"
	defaultAnnotation     = "default"
	tagsAnnotation        = "tags"
	injectAnnotation      = "inject"

	injectKindNullable = "nullable"
	injectKindAll      = "all"
)

type (
	// annotationList is every annotation found on one line, e.g. `@component @tags(fast) @root`.
	annotationList struct {
		Items []*annotation `parser:"@@*"`
	}

	annotation struct {
		Name       string      `parser:"'@' @Ident"`
		Args       []string    `parser:"( '(' ( @(Ident | String) ( ',' @(Ident | String) )* )? ')' )?"`
		Properties []*property `parser:"@@*"`
	}

	property struct {
		Key    string   `parser:"@Ident '='"`
		Values []string `parser:"@(Ident | String) ( ',' @(Ident | String) )*"`
	}

	// annotations are the annotations of a doc comment, by name.
	annotations map[string]*annotation

	// inject is the per parameter annotation, `// @inject tags=a,b kind=nullable`.
	inject struct {
		tags []string
		kind string
	}
)

var annotationParser = participle.MustBuild[annotationList](
	participle.Lexer(lexer.MustSimple([]lexer.SimpleRule{
		{Name: "At", Pattern: `@`},
		{Name: "String", Pattern: `"(\\"|[^"])*"`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_\-.]*`},
		{Name: "Punct", Pattern: `[(),=]`},
		{Name: "Whitespace", Pattern: `\s+`},
	})),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
	participle.UseLookahead(2),
)

// parseAnnotations reads the annotation lines of a doc comment, the other lines are description.
func parseAnnotations(doc string) (annotations, error) {
	found := make(annotations)
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "@") {
			continue
		}
		list, err := annotationParser.ParseString("", line)
		if err != nil {
			return nil, fmt.Errorf("invalid annotation %q:\n\t%w", line, err)
		}
		for _, a := range list.Items {
			found[a.Name] = a
		}
	}
	return found, nil
}

func (a annotations) has(name string) bool {
	_, found := a[name]
	return found
}

// declares returns true if the annotations make a declaration out of the annotated function.
func (a annotations) declares() bool {
	return a.has(componentAnnotation) || a.has(interceptorAnnotation)
}

func (a annotations) tags() []string {
	if t, found := a[tagsAnnotation]; found {
		return t.Args
	}
	return nil
}

// parseInject reads a parameter comment. A comment which is not an @inject annotation gives the
// default injection.
func parseInject(comment string) (inject, error) {
	content := strings.TrimSpace(strings.TrimPrefix(comment, "//"))
	if !strings.HasPrefix(content, "@"+injectAnnotation) {
		return inject{}, nil
	}
	found, err := parseAnnotations(content)
	if err != nil {
		return inject{}, err
	}

	a := found[injectAnnotation]
	var result inject
	for _, p := range a.Properties {
		switch p.Key {
		case "tags":
			result.tags = p.Values
		case "kind":
			if len(p.Values) != 1 {
				return inject{}, fmt.Errorf("kind must have a single value, got %s", strings.Join(p.Values, ","))
			}
			switch kind := p.Values[0]; kind {
			case injectKindNullable, injectKindAll:
				result.kind = kind
			default:
				return inject{}, fmt.Errorf("unknown injection kind %q, expected %s or %s", kind, injectKindNullable, injectKindAll)
			}
		default:
			return inject{}, fmt.Errorf("unknown @inject property %q", p.Key)
		}
	}
	return result, nil
}
