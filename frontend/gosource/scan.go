// Package gosource reads component declarations from annotated Go sources.
//
//	// @component @tags(primary)
//	func NewUserRepo(
//		db *sql.DB,
//		clock Clock, // @inject kind=nullable
//	) (*UserRepo, error)
//
// Functions annotated @component become module methods, types annotated @component are built by
// the New<Type> function of their package, functions annotated @interceptor produce a
// kora.Interceptor, structs annotated @implicit are built from their exported fields when nothing
// declares them. @root marks the components the graph is built for, @default the components
// giving way to any other candidate.
package gosource

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/tools/go/packages"

	"github.com/a-peyrard/koragraph"
	"github.com/a-peyrard/koragraph/option"
	"github.com/a-peyrard/koragraph/typesys"
)

type (
	Scanner struct {
		universe *typesys.Universe
		options  *ScannerOptions
	}

	ScannerOptions struct {
		logger     *zerolog.Logger
		dir        string
		buildFlags []string
	}

	// source is one type checked package, whatever loaded it.
	source struct {
		path  string
		fset  *token.FileSet
		files []*ast.File
		pkg   *types.Package
		info  *types.Info
	}

	// analysis accumulates what is found in the sources.
	analysis struct {
		converter *converter
		logger    *zerolog.Logger
		input     koragraph.Input
		errs      []error
	}
)

func WithLogger(logger *zerolog.Logger) option.Option[ScannerOptions] {
	return func(opts *ScannerOptions) {
		opts.logger = logger
	}
}

// WithDir sets the directory packages are loaded from, the current directory by default.
func WithDir(dir string) option.Option[ScannerOptions] {
	return func(opts *ScannerOptions) {
		opts.dir = dir
	}
}

func WithBuildFlags(flags ...string) option.Option[ScannerOptions] {
	return func(opts *ScannerOptions) {
		opts.buildFlags = append(opts.buildFlags, flags...)
	}
}

func NewScanner(universe *typesys.Universe, opts ...option.Option[ScannerOptions]) *Scanner {
	nop := zerolog.Nop()
	return &Scanner{
		universe: universe,
		options:  option.Build(&ScannerOptions{logger: &nop}, opts...),
	}
}

// Scan loads the packages matching the patterns and converts their annotated declarations. The
// types they use are defined in the universe of the scanner.
func (s *Scanner) Scan(ctx context.Context, patterns ...string) (koragraph.Input, error) {
	logger := s.options.logger
	startScan := time.Now()

	cfg := &packages.Config{
		Context:    ctx,
		Dir:        s.options.dir,
		BuildFlags: s.options.buildFlags,
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedSyntax |
			packages.NeedTypes | packages.NeedTypesInfo | packages.NeedImports,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return koragraph.Input{}, fmt.Errorf("failed to load packages %v:\n\t%w", patterns, err)
	}

	var (
		sources []source
		errs    []error
	)
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			errs = append(errs, fmt.Errorf("package %s: %s", pkg.PkgPath, e))
		}
		sources = append(sources, source{
			path:  pkg.PkgPath,
			fset:  pkg.Fset,
			files: pkg.Syntax,
			pkg:   pkg.Types,
			info:  pkg.TypesInfo,
		})
	}
	if err := errors.Join(errs...); err != nil {
		return koragraph.Input{}, err
	}

	input, err := s.analyze(sources)
	if err != nil {
		return koragraph.Input{}, err
	}
	logger.Info().
		Int("packages", len(sources)).
		Int("declarations", len(input.Declarations)).
		Int("roots", len(input.Roots)).
		Dur("elapsed", time.Since(startScan)).
		Msg("scanning completed")
	return input, nil
}

func (s *Scanner) analyze(sources []source) (koragraph.Input, error) {
	a := &analysis{
		converter: newConverter(s.universe, s.options.logger),
		logger:    s.options.logger,
	}

	type annotated struct {
		src         source
		fn          *ast.FuncDecl
		typ         *ast.TypeSpec
		annotations annotations
	}
	var found []annotated

	for _, src := range sources {
		for _, file := range src.files {
			for _, decl := range file.Decls {
				switch d := decl.(type) {
				case *ast.FuncDecl:
					if d.Doc == nil || d.Recv != nil {
						continue
					}
					annotations, err := parseAnnotations(d.Doc.Text())
					if err != nil {
						a.fail(src, d.Name.Name, err)
						continue
					}
					if annotations.declares() {
						found = append(found, annotated{src: src, fn: d, annotations: annotations})
					}
				case *ast.GenDecl:
					if d.Tok != token.TYPE {
						continue
					}
					for _, spec := range d.Specs {
						typeSpec := spec.(*ast.TypeSpec)
						doc := typeSpec.Doc
						if doc == nil && len(d.Specs) == 1 {
							doc = d.Doc
						}
						if doc == nil {
							continue
						}
						annotations, err := parseAnnotations(doc.Text())
						if err != nil {
							a.fail(src, typeSpec.Name.Name, err)
							continue
						}
						if annotations.has(implicitAnnotation) {
							if obj, ok := src.info.Defs[typeSpec.Name].(*types.TypeName); ok {
								a.converter.implicit[obj] = true
							}
						}
						if annotations.has(componentAnnotation) {
							found = append(found, annotated{src: src, typ: typeSpec, annotations: annotations})
						}
					}
				}
			}
		}
	}

	for _, f := range found {
		if f.fn != nil {
			a.function(f.src, f.fn, f.annotations)
		} else {
			a.annotatedType(f.src, f.typ, f.annotations)
		}
	}
	a.converter.complete()

	if err := errors.Join(a.errs...); err != nil {
		return koragraph.Input{}, err
	}
	return a.input, nil
}

func (a *analysis) fail(src source, name string, err error) {
	a.errs = append(a.errs, fmt.Errorf("%s.%s:\n\t%w", src.path, name, err))
}

func (a *analysis) add(d koragraph.Declaration, annotations annotations) {
	a.logger.Debug().Str("declaration", d.Origin()).Str("type", d.Type().String()).Msg("=> found declaration")
	a.input.Declarations = append(a.input.Declarations, d)
	if annotations.has(rootAnnotation) {
		a.input.Roots = append(a.input.Roots, d)
	}
}

// function converts an annotated function into a module method, or an interceptor.
func (a *analysis) function(src source, fn *ast.FuncDecl, annotations annotations) {
	obj, ok := src.info.Defs[fn.Name].(*types.Func)
	if !ok {
		a.fail(src, fn.Name.Name, fmt.Errorf("no type information"))
		return
	}

	common, typeParams, returnsError, err := a.signature(src, fn, obj.Type().(*types.Signature), annotations)
	if err != nil {
		a.fail(src, fn.Name.Name, err)
		return
	}

	a.add(&koragraph.ModuleMethod{
		Spec:         common,
		Module:       src.path,
		Method:       fn.Name.Name,
		ReturnsError: returnsError,
		TypeParams:   typeParams,
	}, annotations)
}

// annotatedType converts an annotated type, built by the New<Type> function of its package.
func (a *analysis) annotatedType(src source, typ *ast.TypeSpec, annotations annotations) {
	constructor := "New" + typ.Name.Name
	var fn *ast.FuncDecl
	for _, file := range src.files {
		for _, decl := range file.Decls {
			if d, ok := decl.(*ast.FuncDecl); ok && d.Recv == nil && d.Name.Name == constructor {
				fn = d
			}
		}
	}
	if fn == nil {
		a.fail(src, typ.Name.Name, fmt.Errorf("annotated type needs a %s function", constructor))
		return
	}
	obj, ok := src.info.Defs[fn.Name].(*types.Func)
	if !ok {
		a.fail(src, constructor, fmt.Errorf("no type information"))
		return
	}

	common, typeParams, returnsError, err := a.signature(src, fn, obj.Type().(*types.Signature), annotations)
	if err != nil {
		a.fail(src, constructor, err)
		return
	}

	a.add(&koragraph.AnnotatedType{
		Spec:         common,
		Package:      src.path,
		Constructor:  constructor,
		ReturnsError: returnsError,
		TypeParams:   typeParams,
	}, annotations)
}

// signature converts what a function produces and requires.
func (a *analysis) signature(
	src source,
	fn *ast.FuncDecl,
	sig *types.Signature,
	annotations annotations,
) (koragraph.Spec, []*typesys.TypeVar, bool, error) {
	c := a.converter

	var typeParams []*typesys.TypeVar
	for i := 0; i < sig.TypeParams().Len(); i++ {
		v := typesys.NewTypeVar(sig.TypeParams().At(i).Obj().Name(), fn.Name.Name)
		c.vars[sig.TypeParams().At(i)] = v
		typeParams = append(typeParams, v)
	}
	for i, v := range typeParams {
		v.Bounds = c.bounds(sig.TypeParams().At(i))
	}

	results := sig.Results()
	returnsError := false
	switch {
	case results.Len() == 1:
	case results.Len() == 2 && isError(results.At(1).Type()):
		returnsError = true
	default:
		return koragraph.Spec{}, nil, false, fmt.Errorf("a component function must return a value, and optionally an error")
	}
	produced := results.At(0).Type()
	produces, err := c.toType(produced)
	if err != nil {
		return koragraph.Spec{}, nil, false, err
	}

	common := koragraph.Spec{
		Produces: produces,
		TagSet:   koragraph.NewTags(annotations.tags()...),
		Default:  annotations.has(defaultAnnotation),
	}

	if annotations.has(interceptorAnnotation) {
		if common.Intercepts, err = a.interceptTarget(src, produced); err != nil {
			return koragraph.Spec{}, nil, false, err
		}
	}

	file := fileOf(src, fn)
	index := 0
	for _, field := range fn.Type.Params.List {
		in, err := parseInject(findCommentForParam(src.fset, file, field))
		if err != nil {
			return koragraph.Spec{}, nil, false, err
		}
		names := len(field.Names)
		if names == 0 {
			names = 1
		}
		for range names {
			claim, err := c.claim(sig.Params().At(index).Type(), in)
			if err != nil {
				return koragraph.Spec{}, nil, false, fmt.Errorf("parameter %d:\n\t%w", index, err)
			}
			common.Requires = append(common.Requires, claim)
			index++
		}
	}
	return common, typeParams, returnsError, nil
}

// interceptTarget is T for a produced type implementing `Intercept(T) (T, error)`.
func (a *analysis) interceptTarget(src source, produced types.Type) (typesys.Type, error) {
	obj, _, _ := types.LookupFieldOrMethod(produced, true, src.pkg, "Intercept")
	fn, ok := obj.(*types.Func)
	if !ok {
		return nil, fmt.Errorf("an interceptor must produce a type with an Intercept method")
	}
	sig := fn.Type().(*types.Signature)
	if sig.Params().Len() != 1 || sig.Results().Len() != 2 ||
		!types.Identical(sig.Params().At(0).Type(), sig.Results().At(0).Type()) ||
		!isError(sig.Results().At(1).Type()) {
		return nil, fmt.Errorf("the Intercept method of %s must be Intercept(T) (T, error)", produced)
	}
	return a.converter.toType(sig.Params().At(0).Type())
}

func isError(t types.Type) bool {
	return types.Identical(t, types.Universe.Lookup("error").Type())
}

func fileOf(src source, node ast.Node) *ast.File {
	for _, file := range src.files {
		if file.Pos() <= node.Pos() && node.End() <= file.End() {
			return file
		}
	}
	return nil
}

func findCommentForParam(fset *token.FileSet, file *ast.File, param *ast.Field) string {
	if file == nil {
		return ""
	}
	paramLine := fset.Position(param.End()).Line

	for _, commentGroup := range file.Comments {
		for _, comment := range commentGroup.List {
			if fset.Position(comment.Pos()).Line == paramLine && comment.Pos() > param.End() {
				return comment.Text
			}
		}
	}
	return ""
}
