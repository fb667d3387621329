package yamlspec

import (
	"errors"
	"fmt"

	"github.com/a-peyrard/koragraph"
	"github.com/a-peyrard/koragraph/typesys"
)

// Compiled is a document turned into builder input.
type Compiled struct {
	Input koragraph.Input
	byID  map[string]koragraph.Declaration
}

// Declaration returns the declaration with the given id.
func (c *Compiled) Declaration(id string) (koragraph.Declaration, bool) {
	d, found := c.byID[id]
	return d, found
}

// Compile defines the document types in the universe and converts its declarations. Types are
// defined first so they can reference each other in any order.
func (d *Document) Compile(universe *typesys.Universe) (*Compiled, error) {
	elements, err := d.defineTypes(universe)
	if err != nil {
		return nil, err
	}

	sc := newScope(universe)
	var errs []error
	for i, spec := range d.Types {
		if err := completeType(sc, elements[i], spec); err != nil {
			errs = append(errs, fmt.Errorf("type %s:\n\t%w", elements[i].QualifiedName(), err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	compiled := &Compiled{byID: make(map[string]koragraph.Declaration)}
	convertAll := func(specs []DeclarationSpec, templates bool) []koragraph.Declaration {
		var declarations []koragraph.Declaration
		for i, spec := range specs {
			declaration, err := convertDeclaration(sc, spec)
			if err == nil && templates && !declaration.IsTemplate() {
				err = fmt.Errorf("type %s has no type variable, declare it with the declarations", declaration.Type())
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("declaration %s:\n\t%w", spec.label(i), err))
				continue
			}
			if spec.ID != "" {
				if _, exists := compiled.byID[spec.ID]; exists {
					errs = append(errs, fmt.Errorf("declaration id %q is used more than once", spec.ID))
					continue
				}
				compiled.byID[spec.ID] = declaration
			}
			declarations = append(declarations, declaration)
		}
		return declarations
	}
	compiled.Input.Declarations = convertAll(d.Declarations, false)
	compiled.Input.Templates = convertAll(d.Templates, true)

	for _, id := range d.Roots {
		root, found := compiled.byID[id]
		if !found {
			errs = append(errs, fmt.Errorf("root %q is not a declaration id", id))
			continue
		}
		compiled.Input.Roots = append(compiled.Input.Roots, root)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return compiled, nil
}

func (d *Document) defineTypes(universe *typesys.Universe) ([]*typesys.Element, error) {
	elements := make([]*typesys.Element, len(d.Types))
	var errs []error
	for i, spec := range d.Types {
		element := &typesys.Element{
			Package:       spec.Package,
			Name:          spec.Name,
			Interface:     spec.Interface,
			Final:         spec.Final,
			Pointer:       spec.Pointer,
			Constructible: spec.Constructible,
		}
		for _, p := range spec.Params {
			element.Params = append(element.Params, typesys.NewTypeVar(p.Name, spec.Name))
		}
		defined, err := universe.Define(element)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		elements[i] = defined
	}
	return elements, errors.Join(errs...)
}

func completeType(sc *scope, element *typesys.Element, spec TypeSpec) error {
	if spec.Interface && spec.Final {
		return fmt.Errorf("an interface cannot be final")
	}
	inner := sc.with(element.Params...)
	if err := resolveBounds(inner, element.Params, spec.Params); err != nil {
		return err
	}

	for _, s := range spec.Supertypes {
		super, err := inner.resolveDeclared(s)
		if err != nil {
			return err
		}
		element.Supertypes = append(element.Supertypes, super)
	}

	for _, field := range spec.Constructor {
		t, err := inner.resolve(field.Type)
		if err != nil {
			return err
		}
		element.Constructor = append(element.Constructor, t)
		element.Fields = append(element.Fields, field.Name)
	}

	for _, m := range spec.Methods {
		params, err := inner.resolveAll(m.Params)
		if err != nil {
			return fmt.Errorf("method %s:\n\t%w", m.Name, err)
		}
		results, err := inner.resolveAll(m.Results)
		if err != nil {
			return fmt.Errorf("method %s:\n\t%w", m.Name, err)
		}
		element.Methods = append(element.Methods, typesys.Method{
			Name:     m.Name,
			Params:   params,
			Results:  results,
			Variadic: m.Variadic,
		})
	}
	return nil
}

// resolveBounds resolves the bounds of already created variables, in a scope where they are all
// visible so bounds can be recursive.
func resolveBounds(sc *scope, vars []*typesys.TypeVar, specs []ParamSpec) error {
	for i, spec := range specs {
		bounds, err := sc.resolveAll(spec.Bounds)
		if err != nil {
			return fmt.Errorf("bounds of %s:\n\t%w", spec.Name, err)
		}
		vars[i].Bounds = bounds
	}
	return nil
}

func convertDeclaration(sc *scope, spec DeclarationSpec) (koragraph.Declaration, error) {
	owner := spec.Method
	if spec.Kind == KindAnnotated {
		owner = spec.Constructor
	}
	var params []*typesys.TypeVar
	for _, p := range spec.TypeParams {
		params = append(params, typesys.NewTypeVar(p.Name, owner))
	}
	inner := sc.with(params...)
	if err := resolveBounds(inner, params, spec.TypeParams); err != nil {
		return nil, err
	}

	if spec.Type == "" {
		return nil, fmt.Errorf("a declaration must have a type")
	}
	produces, err := inner.resolve(spec.Type)
	if err != nil {
		return nil, err
	}

	claims := make([]koragraph.Claim, 0, len(spec.Claims))
	for _, c := range spec.Claims {
		claim, err := convertClaim(inner, c)
		if err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}

	common := koragraph.Spec{
		Produces: produces,
		TagSet:   koragraph.NewTags(spec.Tags...),
		Requires: claims,
		Default:  spec.Default,
	}
	if spec.Intercepts != "" {
		if common.Intercepts, err = inner.resolve(spec.Intercepts); err != nil {
			return nil, err
		}
	}

	switch spec.Kind {
	case KindModule, "":
		if spec.Module == "" || spec.Method == "" {
			return nil, fmt.Errorf("a module declaration needs a module and a method")
		}
		return &koragraph.ModuleMethod{
			Spec:         common,
			Module:       spec.Module,
			Method:       spec.Method,
			ReturnsError: spec.ReturnsError,
			TypeParams:   params,
		}, nil
	case KindAnnotated:
		if spec.Package == "" || spec.Constructor == "" {
			return nil, fmt.Errorf("an annotated declaration needs a package and a constructor")
		}
		return &koragraph.AnnotatedType{
			Spec:         common,
			Package:      spec.Package,
			Constructor:  spec.Constructor,
			ReturnsError: spec.ReturnsError,
			TypeParams:   params,
		}, nil
	default:
		return nil, fmt.Errorf("unknown declaration kind %q, expected %s or %s", spec.Kind, KindModule, KindAnnotated)
	}
}

func convertClaim(sc *scope, spec ClaimSpec) (koragraph.Claim, error) {
	kind := koragraph.OneRequired
	if spec.Kind != "" {
		var err error
		if kind, err = koragraph.ParseClaimKind(spec.Kind); err != nil {
			return koragraph.Claim{}, err
		}
	}
	t, err := sc.resolve(spec.Type)
	if err != nil {
		return koragraph.Claim{}, err
	}
	return koragraph.NewClaim(t, kind, spec.Tags...), nil
}

func (s DeclarationSpec) label(position int) string {
	if s.ID != "" {
		return s.ID
	}
	if s.Method != "" {
		return s.Method
	}
	if s.Constructor != "" {
		return s.Constructor
	}
	return fmt.Sprintf("#%d", position)
}
