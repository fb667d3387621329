// Package emit writes the Go source of a resolved graph: a struct holding every component and
// a constructor building them in index order.
package emit

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/a-peyrard/koragraph"
	"github.com/a-peyrard/koragraph/option"
	"github.com/a-peyrard/koragraph/set"
	"github.com/a-peyrard/koragraph/typesys"
)

const generatedHeader = "// Code generated by koragraph. DO NOT EDIT."

type (
	Emitter struct {
		options *EmitterOptions
	}

	EmitterOptions struct {
		logger      *zerolog.Logger
		packageName string
		importPath  string
		graphName   string
		accessor    string
		roots       []koragraph.Declaration
	}

	// file is the state of one emission.
	file struct {
		options *EmitterOptions
		graph   *koragraph.Graph

		imports set.Set[string]
		aliases map[string]string
		taken   set.Set[string]

		fields  []string
		usesErr bool
	}
)

func WithLogger(logger *zerolog.Logger) option.Option[EmitterOptions] {
	return func(opts *EmitterOptions) {
		opts.logger = logger
	}
}

// WithPackage sets the package of the generated file, types of that package are not qualified.
func WithPackage(name, importPath string) option.Option[EmitterOptions] {
	return func(opts *EmitterOptions) {
		opts.packageName = name
		opts.importPath = importPath
	}
}

func WithGraphName(name string) option.Option[EmitterOptions] {
	return func(opts *EmitterOptions) {
		opts.graphName = name
	}
}

// WithAccessor sets the method giving the inner value of a wrapper, Value by default.
func WithAccessor(accessor string) option.Option[EmitterOptions] {
	return func(opts *EmitterOptions) {
		opts.accessor = accessor
	}
}

// WithRoots exposes the components of the given declarations through accessor methods.
func WithRoots(roots ...koragraph.Declaration) option.Option[EmitterOptions] {
	return func(opts *EmitterOptions) {
		opts.roots = append(opts.roots, roots...)
	}
}

func New(opts ...option.Option[EmitterOptions]) *Emitter {
	nop := zerolog.Nop()
	return &Emitter{
		options: option.Build(
			&EmitterOptions{
				logger:      &nop,
				packageName: "graph",
				graphName:   "Graph",
				accessor:    "Value",
			},
			opts...,
		),
	}
}

// WriteFile emits the graph into path.
func (e *Emitter) WriteFile(path string, graph *koragraph.Graph) error {
	content, err := e.Emit(graph)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write generated graph %s:\n\t%w", path, err)
	}
	e.options.logger.Debug().Str("path", path).Int("components", len(graph.Components)).Msg("graph written")
	return nil
}

// Emit renders the graph as a formatted Go file.
func (e *Emitter) Emit(graph *koragraph.Graph) ([]byte, error) {
	if err := graph.Validate(); err != nil {
		return nil, fmt.Errorf("cannot emit an invalid graph:\n\t%w", err)
	}

	f := &file{
		options: e.options,
		graph:   graph,
		imports: set.New[string](),
		aliases: make(map[string]string),
		// reserved for the constructor locals and the error wrapping import
		taken: set.NewWithValues("g", "err", "fmt"),
	}
	body, err := f.body()
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.WriteString(generatedHeader + "\n\n")
	fmt.Fprintf(&out, "package %s\n\n", e.options.packageName)
	f.writeImports(&out)
	out.Write(body)

	formatted, err := format.Source(out.Bytes())
	if err != nil {
		return nil, fmt.Errorf("generated graph is not valid Go:\n\t%w", err)
	}
	return formatted, nil
}

func (f *file) body() ([]byte, error) {
	graphName := f.options.graphName
	fieldNames := set.New[string]()
	f.fields = make([]string, len(f.graph.Components))
	for _, c := range f.graph.Components {
		description := c.Type.String()
		if !c.Tags.IsEmpty() {
			description += " " + strings.Join(c.Tags, " ")
		}
		if c.IsProxy() {
			description += " proxy"
		}
		f.fields[c.Index] = uniqueName(description, fieldNames)
	}

	var (
		decl         bytes.Buffer
		proxies      bytes.Buffer
		construction bytes.Buffer
	)
	fmt.Fprintf(&decl, "// %s holds the components of the graph, constructed in dependency order.\n", graphName)
	fmt.Fprintf(&decl, "type %s struct {\n", graphName)
	for _, c := range f.graph.Components {
		typeName, err := f.typeName(c.Type)
		if err != nil {
			return nil, fmt.Errorf("component %s:\n\t%w", c, err)
		}
		fmt.Fprintf(&decl, "\t%s %s\n", f.fields[c.Index], typeName)

		if c.IsProxy() {
			if err := f.proxy(&proxies, c); err != nil {
				return nil, fmt.Errorf("component %s:\n\t%w", c, err)
			}
		}
		if err := f.construct(&construction, c); err != nil {
			return nil, fmt.Errorf("component %s:\n\t%w", c, err)
		}
	}
	decl.WriteString("}\n\n")

	var out bytes.Buffer
	out.Write(decl.Bytes())
	out.Write(proxies.Bytes())

	fmt.Fprintf(&out, "// New%s constructs every component of the graph.\n", graphName)
	fmt.Fprintf(&out, "func New%s() (*%s, error) {\n", graphName, graphName)
	fmt.Fprintf(&out, "g := &%s{}\n", graphName)
	if f.usesErr {
		out.WriteString("var err error\n")
	}
	out.Write(construction.Bytes())
	out.WriteString("return g, nil\n}\n")

	if err := f.accessors(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (f *file) accessors(out *bytes.Buffer) error {
	for _, root := range f.options.roots {
		c, found := f.graph.Find(root)
		if !found {
			return fmt.Errorf("root %s (%s) is not part of the graph", root.Type(), root.Origin())
		}
		typeName, err := f.typeName(c.Type)
		if err != nil {
			return err
		}
		field := f.fields[c.Index]
		fmt.Fprintf(out, "\nfunc (g *%s) %s() %s {\nreturn g.%s\n}\n", f.options.graphName, exported(field), typeName, field)
	}
	return nil
}

// construct writes the statements building the component, then applying its interceptors.
func (f *file) construct(out *bytes.Buffer, c *koragraph.Component) error {
	expr, returnsError, err := f.expression(c)
	if err != nil {
		return err
	}
	field := "g." + f.fields[c.Index]
	if returnsError {
		f.usesErr = true
		fmt.Fprintf(out, "if %s, err = %s; err != nil {\n", field, expr)
		fmt.Fprintf(out, "return nil, %s.Errorf(\"failed to construct %s:\\n\\t%%w\", err)\n}\n", f.use("fmt"), c.Type)
	} else {
		fmt.Fprintf(out, "%s = %s\n", field, expr)
	}

	for _, index := range c.Interceptors {
		if index >= c.Index {
			return fmt.Errorf("interceptor #%d is constructed after the component it intercepts", index)
		}
		typeName, err := f.typeName(c.Type)
		if err != nil {
			return err
		}
		f.usesErr = true
		fmt.Fprintf(out, "if %s, err = %s.Intercept[%s](%s, g.%s); err != nil {\nreturn nil, err\n}\n",
			field, f.use(typesys.RuntimePackage), typeName, field, f.fields[index])
	}
	return nil
}

// expression is the Go expression producing the component, and whether it also returns an
// error.
func (f *file) expression(c *koragraph.Component) (string, bool, error) {
	args, err := f.arguments(c)
	if err != nil {
		return "", false, err
	}

	switch d := c.Declaration.(type) {
	case *koragraph.ModuleMethod:
		call, err := f.call(d.Module, d.Method, d.TypeArgs, args)
		return call, d.ReturnsError, err
	case *koragraph.AnnotatedType:
		call, err := f.call(d.Package, d.Constructor, d.TypeArgs, args)
		return call, d.ReturnsError, err
	case *koragraph.FromExtension:
		call, err := f.call(d.Package, d.Func, nil, args)
		return call, d.ReturnsError, err
	case *koragraph.Implicit:
		return f.literal(c.Type, d.Element, args)
	case *koragraph.OptionalWrapper:
		inner := d.Claims()[0].Type
		innerName, err := f.typeName(inner)
		if err != nil {
			return "", false, err
		}
		kora := f.use(typesys.RuntimePackage)
		if _, absent := c.Dependencies[0].(koragraph.NullDependency); absent {
			return fmt.Sprintf("%s.Empty[%s]()", kora, innerName), false, nil
		}
		return fmt.Sprintf("%s.Of[%s](%s)", kora, innerName, args[0]), false, nil
	case *koragraph.PromisedProxy:
		dep, ok := c.Dependencies[0].(koragraph.PromisedProxyDependency)
		if !ok {
			return "", false, fmt.Errorf("promised proxy without its target")
		}
		promise, err := f.deferred("NewPromise", c.Type, dep.Component, false)
		if err != nil {
			return "", false, err
		}
		return fmt.Sprintf("&%s{target: %s}", proxyName(c), promise), false, nil
	default:
		return "", false, fmt.Errorf("unsupported declaration %T", c.Declaration)
	}
}

func (f *file) call(pkg, name string, typeArgs []typesys.Type, args []string) (string, error) {
	var b strings.Builder
	b.WriteString(f.qualified(pkg, name))
	if err := f.writeTypeArgs(&b, typeArgs); err != nil {
		return "", err
	}
	b.WriteString("(" + strings.Join(args, ", ") + ")")
	return b.String(), nil
}

// literal builds an implicit component from its fields.
func (f *file) literal(t typesys.Type, e *typesys.Element, args []string) (string, bool, error) {
	d := t.(*typesys.Declared)
	var b strings.Builder
	if e.Pointer {
		b.WriteString("&")
	}
	b.WriteString(f.qualified(e.Package, e.Name))
	if err := f.writeTypeArgs(&b, d.Args); err != nil {
		return "", false, err
	}
	b.WriteString("{")
	for i, arg := range args {
		if i >= len(e.Fields) {
			return "", false, fmt.Errorf("%s has no field for constructor parameter %d", e.QualifiedName(), i)
		}
		fmt.Fprintf(&b, "%s: %s, ", e.Fields[i], arg)
	}
	b.WriteString("}")
	return b.String(), false, nil
}

func (f *file) arguments(c *koragraph.Component) ([]string, error) {
	if c.IsProxy() {
		return nil, nil
	}
	args := make([]string, len(c.Dependencies))
	for i, dep := range c.Dependencies {
		arg, err := f.argument(dep)
		if err != nil {
			return nil, fmt.Errorf("dependency %s:\n\t%w", dep.Claim(), err)
		}
		args[i] = arg
	}
	return args, nil
}

func (f *file) argument(dep koragraph.Dependency) (string, error) {
	claim := dep.Claim()
	switch d := dep.(type) {
	case koragraph.TargetDependency:
		return f.access(d.Component, d.Unwrapped), nil
	case koragraph.PromiseOfDependency:
		return f.deferred("NewPromise", claim.Type, d.Component, d.Unwrapped)
	case koragraph.ValueOfDependency:
		return f.deferred("NewValue", claim.Type, d.Component, d.Unwrapped)
	case koragraph.AllOfDependency:
		elem, err := f.parameterType(claim)
		if err != nil {
			return "", err
		}
		items := make([]string, len(d.Items))
		for i, item := range d.Items {
			if items[i], err = f.argument(item); err != nil {
				return "", err
			}
		}
		return fmt.Sprintf("[]%s{%s}", elem, strings.Join(items, ", ")), nil
	case koragraph.NullDependency:
		param, err := f.parameterType(claim)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s.Zero[%s]()", f.use(typesys.RuntimePackage), param), nil
	case koragraph.TypeRefDependency:
		ref, err := f.typeName(d.Ref)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s.TypeRef[%s]{}", f.use(typesys.RuntimePackage), ref), nil
	default:
		return "", fmt.Errorf("unsupported dependency %T", dep)
	}
}

// parameterType is the type the requester receives for one matching component of the claim.
func (f *file) parameterType(claim koragraph.Claim) (string, error) {
	t, err := f.typeName(claim.Type)
	if err != nil {
		return "", err
	}
	switch claim.Kind {
	case koragraph.PromiseOf, koragraph.NullablePromiseOf, koragraph.AllOfPromise:
		return fmt.Sprintf("%s.Promise[%s]", f.use(typesys.RuntimePackage), t), nil
	case koragraph.ValueOf, koragraph.NullableValueOf, koragraph.AllOfValue:
		return fmt.Sprintf("%s.Value[%s]", f.use(typesys.RuntimePackage), t), nil
	default:
		return t, nil
	}
}

func (f *file) access(index int, unwrapped bool) string {
	if unwrapped {
		return fmt.Sprintf("g.%s.%s()", f.fields[index], f.options.accessor)
	}
	return "g." + f.fields[index]
}

// deferred renders a closure reading the component when called, so the component may be
// constructed later.
func (f *file) deferred(constructor string, t typesys.Type, index int, unwrapped bool) (string, error) {
	typeName, err := f.typeName(t)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s(func() %s { return %s })",
		f.use(typesys.RuntimePackage), constructor, typeName, f.access(index, unwrapped)), nil
}

// typeName renders a concrete type, qualified with the import aliases of the file.
func (f *file) typeName(t typesys.Type) (string, error) {
	var b strings.Builder
	if err := f.writeType(&b, t); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (f *file) writeType(b *strings.Builder, t typesys.Type) error {
	switch x := t.(type) {
	case *typesys.Declared:
		name := x.Element.Name
		if x.Element.Pointer && !x.Element.Interface {
			name = "*" + name
		}
		b.WriteString(f.qualified(x.Element.Package, name))
		return f.writeTypeArgs(b, x.Args)
	case *typesys.Array:
		b.WriteString("[]")
		return f.writeType(b, x.Elem)
	case *typesys.Primitive:
		b.WriteString(x.Name)
		return nil
	default:
		return fmt.Errorf("type %s cannot be rendered, only concrete types can", t)
	}
}

func (f *file) writeTypeArgs(b *strings.Builder, args []typesys.Type) error {
	if len(args) == 0 {
		return nil
	}
	b.WriteString("[")
	for i, arg := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		if err := f.writeType(b, arg); err != nil {
			return err
		}
	}
	b.WriteString("]")
	return nil
}

// qualified prefixes name with the alias of pkg, importing it on first use.
func (f *file) qualified(pkg, name string) string {
	if pkg == "" || pkg == f.options.importPath {
		return name
	}
	f.use(pkg)
	return generateFQN(pkg, name, f.aliases)
}

// use imports pkg and returns its alias.
func (f *file) use(pkg string) string {
	if alias, found := f.aliases[pkg]; found {
		f.imports.Add(pkg)
		return alias
	}
	alias := pkg
	if pkg != "fmt" {
		alias = findSuitableAlias(pkg, f.taken)
		f.taken.Add(alias)
	}
	f.aliases[pkg] = alias
	f.imports.Add(pkg)
	return alias
}

func (f *file) writeImports(out *bytes.Buffer) {
	if f.imports.IsEmpty() {
		return
	}
	paths := f.imports.ToSlice()
	sort.Strings(paths)
	out.WriteString("import (\n")
	for _, path := range paths {
		if path == f.aliases[path] {
			fmt.Fprintf(out, "\t%q\n", path)
		} else {
			fmt.Fprintf(out, "\t%s %q\n", f.aliases[path], path)
		}
	}
	out.WriteString(")\n\n")
}
