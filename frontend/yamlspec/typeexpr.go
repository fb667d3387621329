package yamlspec

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/a-peyrard/koragraph/slices"
	"github.com/a-peyrard/koragraph/typesys"
)

type (
	// typeExpr is a Go-like type expression: `pkg.Name`, `pkg.Name[Arg, ...]`, `[]Elem`, a type
	// variable or a builtin.
	typeExpr struct {
		Slice *typeExpr  `parser:"  '[' ']' @@"`
		Named *namedExpr `parser:"| @@"`
	}

	namedExpr struct {
		Parts []string    `parser:"@Ident ( '.' @Ident )?"`
		Args  []*typeExpr `parser:"( '[' @@ ( ',' @@ )* ']' )?"`
	}

	// scope resolves the names of a type expression: type variables first, then builtins, then
	// elements by short name (`pkg.Name`) or by name alone when it is not ambiguous.
	scope struct {
		vars     map[string]*typesys.TypeVar
		elements map[string][]*typesys.Element
	}
)

var builtins = map[string]bool{
	"any": true, "bool": true, "byte": true, "error": true, "rune": true, "string": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true, "uintptr": true,
	"float32": true, "float64": true, "complex64": true, "complex128": true,
}

var typeParser = participle.MustBuild[typeExpr](
	participle.Lexer(lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
		{Name: "Punct", Pattern: `[\[\].,]`},
		{Name: "Whitespace", Pattern: `\s+`},
	})),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

func parseTypeExpr(s string) (*typeExpr, error) {
	expr, err := typeParser.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("invalid type expression %q:\n\t%w", s, err)
	}
	return expr, nil
}

func newScope(universe *typesys.Universe) *scope {
	sc := &scope{
		vars:     make(map[string]*typesys.TypeVar),
		elements: make(map[string][]*typesys.Element),
	}
	for _, e := range universe.Elements() {
		sc.register(e)
	}
	return sc
}

func (sc *scope) register(e *typesys.Element) {
	sc.elements[e.ShortName()] = append(sc.elements[e.ShortName()], e)
	if e.Package != "" {
		sc.elements[e.Name] = append(sc.elements[e.Name], e)
	}
}

// with returns a child scope where the given variables shadow the enclosing ones.
func (sc *scope) with(vars ...*typesys.TypeVar) *scope {
	child := &scope{
		vars:     make(map[string]*typesys.TypeVar, len(sc.vars)+len(vars)),
		elements: sc.elements,
	}
	for name, v := range sc.vars {
		child.vars[name] = v
	}
	for _, v := range vars {
		child.vars[v.Name] = v
	}
	return child
}

// resolve parses s and resolves it to a type.
func (sc *scope) resolve(s string) (typesys.Type, error) {
	expr, err := parseTypeExpr(s)
	if err != nil {
		return nil, err
	}
	t, err := sc.resolveExpr(expr)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve type %q:\n\t%w", s, err)
	}
	return t, nil
}

// resolveDeclared resolves s, which must designate a declared type.
func (sc *scope) resolveDeclared(s string) (*typesys.Declared, error) {
	t, err := sc.resolve(s)
	if err != nil {
		return nil, err
	}
	d, ok := t.(*typesys.Declared)
	if !ok {
		return nil, fmt.Errorf("type %q is not a declared type", s)
	}
	return d, nil
}

func (sc *scope) resolveAll(expressions []string) ([]typesys.Type, error) {
	if len(expressions) == 0 {
		return nil, nil
	}
	return slices.UnsafeMap(expressions, sc.resolve)
}

func (sc *scope) resolveExpr(expr *typeExpr) (typesys.Type, error) {
	if expr.Slice != nil {
		elem, err := sc.resolveExpr(expr.Slice)
		if err != nil {
			return nil, err
		}
		return typesys.NewArray(elem), nil
	}

	named := expr.Named
	name := strings.Join(named.Parts, ".")
	if len(named.Parts) == 1 {
		if v, found := sc.vars[name]; found {
			if len(named.Args) > 0 {
				return nil, fmt.Errorf("type variable %s cannot have type arguments", name)
			}
			return v, nil
		}
		if builtins[name] {
			if len(named.Args) > 0 {
				return nil, fmt.Errorf("builtin %s cannot have type arguments", name)
			}
			return typesys.NewPrimitive(name), nil
		}
	}

	element, err := sc.element(name)
	if err != nil {
		return nil, err
	}
	args := make([]typesys.Type, len(named.Args))
	for i, arg := range named.Args {
		if args[i], err = sc.resolveExpr(arg); err != nil {
			return nil, err
		}
	}
	if len(args) > 0 && len(args) != len(element.Params) {
		return nil, fmt.Errorf("%s expects %d type arguments, got %d", name, len(element.Params), len(args))
	}
	return typesys.NewDeclared(element, args...), nil
}

func (sc *scope) element(name string) (*typesys.Element, error) {
	switch candidates := sc.elements[name]; len(candidates) {
	case 0:
		return nil, fmt.Errorf("unknown type %s", name)
	case 1:
		return candidates[0], nil
	default:
		qualified := make([]string, len(candidates))
		for i, c := range candidates {
			qualified[i] = c.QualifiedName()
		}
		return nil, fmt.Errorf("type %s is ambiguous, it can be any of %s", name, strings.Join(qualified, ", "))
	}
}
