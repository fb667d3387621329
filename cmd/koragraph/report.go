package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/a-peyrard/koragraph"
)

// reporter renders failures for a terminal.
type reporter struct {
	out     io.Writer
	verbose bool

	title *color.Color
	hint  *color.Color
	dim   *color.Color
	ok    *color.Color
}

func newReporter(out io.Writer, verbose bool) *reporter {
	return &reporter{
		out:     out,
		verbose: verbose,
		title:   color.New(color.FgRed, color.Bold),
		hint:    color.New(color.FgYellow),
		dim:     color.New(color.Faint),
		ok:      color.New(color.FgGreen, color.Bold),
	}
}

func (r *reporter) success(format string, args ...any) {
	r.ok.Fprint(r.out, "✔ ")
	fmt.Fprintf(r.out, format+"\n", args...)
}

func (r *reporter) failure(err error) {
	kind, resolution := koragraph.KindOf(err)
	if !resolution {
		r.title.Fprint(r.out, "✘ koragraph failed\n")
		fmt.Fprintf(r.out, "%s\n", indent(err.Error()))
		return
	}

	r.title.Fprintf(r.out, "✘ %s\n", kind)
	fmt.Fprintf(r.out, "%s\n", indent(err.Error()))
	for _, suggestion := range suggestions(err) {
		r.hint.Fprint(r.out, "hint: ")
		fmt.Fprintln(r.out, suggestion)
	}

	var suppressed *koragraph.SuppressedError
	if errors.As(err, &suppressed) && len(suppressed.Suppressed) > 0 && !r.verbose {
		r.dim.Fprintf(r.out, "%d other candidate(s) failed too, run with --log.level=debug to see why\n", len(suppressed.Suppressed))
	}
}

// suggestions gives what usually fixes a resolution failure.
func suggestions(err error) []string {
	var (
		unresolved *koragraph.UnresolvedDependencyError
		circular   *koragraph.CircularDependencyError
		ambiguous  *koragraph.AmbiguousDependencyError
		template   *koragraph.AmbiguousTemplateError
	)
	switch {
	case errors.As(err, &unresolved):
		if len(unresolved.Hints) > 0 {
			return nil
		}
		s := []string{fmt.Sprintf("declare a component producing %s", unresolved.Claim.Type)}
		if !unresolved.Claim.Tags.IsEmpty() {
			s = append(s, fmt.Sprintf("check the tags %s, they must match exactly", unresolved.Claim.Tags))
		}
		return append(s, "claim it with kind=nullable if it is optional")
	case errors.As(err, &circular):
		return []string{
			"claim one of the dependencies with kora.Promise to defer it",
			"a cycle can only be broken on an interface or a non final type",
		}
	case errors.As(err, &ambiguous):
		return []string{
			"mark one of the candidates with @default",
			"distinguish them with @tags and claim the one you need",
		}
	case errors.As(err, &template):
		return []string{fmt.Sprintf("declare the %s you want explicitly instead of relying on a template", template.Claim.Type)}
	default:
		return nil
	}
}

func indent(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}
