package koragraph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies resolution failures.
type ErrorKind int

const (
	KindConfiguration ErrorKind = iota
	KindCircularDependency
	KindUnresolvedDependency
	KindAmbiguousTemplate
	KindAmbiguousDependency
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindCircularDependency:
		return "circular dependency"
	case KindUnresolvedDependency:
		return "unresolved dependency"
	case KindAmbiguousTemplate:
		return "ambiguous template"
	case KindAmbiguousDependency:
		return "ambiguous dependency"
	default:
		return "unknown"
	}
}

type (
	// ChainLink is one step of a dependency chain: a declaration and the claim it was resolving.
	ChainLink struct {
		Declaration Declaration
		Claim       *Claim
	}

	// Chain goes from the failing declaration back to the root that required it.
	Chain []ChainLink

	ConfigurationError struct {
		Reason string
	}

	// CircularDependencyError reports a cycle that can't be broken with a promised proxy.
	CircularDependencyError struct {
		Declarations []Declaration
		Claim        Claim
		Chain        Chain
		Reason       string
	}

	// UnresolvedDependencyError reports a required claim nothing can satisfy.
	UnresolvedDependencyError struct {
		Claim     Claim
		Requester Declaration
		Chain     Chain
		Hints     []string
	}

	// AmbiguousTemplateError reports several templates producing a valid graph for one claim.
	AmbiguousTemplateError struct {
		Claim      Claim
		Candidates []Declaration
		Chain      Chain
	}

	// AmbiguousDependencyError reports several declarations satisfying one claim with no way to
	// prefer one of them.
	AmbiguousDependencyError struct {
		Claim      Claim
		Candidates []Declaration
		Chain      Chain
	}

	// SuppressedError carries the failure of a fork, with the failures of the other forks.
	SuppressedError struct {
		Err        error
		Suppressed []error
	}
)

// KindOf returns the kind of the first resolution error found in the err tree.
func KindOf(err error) (ErrorKind, bool) {
	var kinded interface{ Kind() ErrorKind }
	if errors.As(err, &kinded) {
		return kinded.Kind(), true
	}
	return 0, false
}

func (e *ConfigurationError) Kind() ErrorKind        { return KindConfiguration }
func (e *CircularDependencyError) Kind() ErrorKind   { return KindCircularDependency }
func (e *UnresolvedDependencyError) Kind() ErrorKind { return KindUnresolvedDependency }
func (e *AmbiguousTemplateError) Kind() ErrorKind    { return KindAmbiguousTemplate }
func (e *AmbiguousDependencyError) Kind() ErrorKind  { return KindAmbiguousDependency }

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

func (e *CircularDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("circular dependency")
	if e.Reason != "" {
		b.WriteString(" (" + e.Reason + ")")
	}
	b.WriteString(" between:\n")
	for _, d := range e.Declarations {
		b.WriteString(fmt.Sprintf("\t- %s\n", describe(d)))
	}
	b.WriteString(e.Chain.String())
	return b.String()
}

func (e *UnresolvedDependencyError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("no component found for %s", e.Claim.Type))
	if !e.Claim.Tags.IsEmpty() {
		b.WriteString(fmt.Sprintf(" with tags %s", e.Claim.Tags))
	}
	if e.Requester != nil {
		b.WriteString(fmt.Sprintf(" required by %s", describe(e.Requester)))
	}
	b.WriteString(":\n")
	b.WriteString(e.Chain.String())
	if len(e.Hints) > 0 {
		b.WriteString("hints:\n")
		for _, hint := range e.Hints {
			b.WriteString(fmt.Sprintf("\t- %s\n", hint))
		}
	}
	return b.String()
}

func (e *AmbiguousTemplateError) Error() string {
	return fmt.Sprintf(
		"multiple components match %s, every candidate template produces a valid graph:\n%s%s",
		e.Claim, describeCandidates(e.Candidates), e.Chain,
	)
}

func (e *AmbiguousDependencyError) Error() string {
	return fmt.Sprintf(
		"multiple components match %s, expected one and only one:\n%s%s",
		e.Claim, describeCandidates(e.Candidates), e.Chain,
	)
}

func (e *SuppressedError) Error() string {
	if len(e.Suppressed) == 0 {
		return e.Err.Error()
	}
	var b strings.Builder
	b.WriteString(e.Err.Error())
	b.WriteString(fmt.Sprintf("suppressed %d other failure(s):\n", len(e.Suppressed)))
	for _, err := range e.Suppressed {
		b.WriteString("\t- " + strings.ReplaceAll(strings.TrimSpace(err.Error()), "\n", "\n\t  ") + "\n")
	}
	return b.String()
}

func (e *SuppressedError) Unwrap() error {
	return e.Err
}

func describeCandidates(candidates []Declaration) string {
	var b strings.Builder
	for _, c := range candidates {
		b.WriteString(fmt.Sprintf("\t- %s\n", describe(c)))
	}
	return b.String()
}

// String renders the chain from the root down to the failure, one level of indentation per
// step.
func (c Chain) String() string {
	var b strings.Builder
	tabs := 0
	for i := len(c) - 1; i >= 0; i-- {
		prefix := ""
		if i != len(c)-1 {
			prefix = " -> "
		}
		link := c[i]
		b.WriteString(strings.Repeat("\t", tabs))
		b.WriteString(prefix)
		b.WriteString(describe(link.Declaration))
		if link.Claim != nil {
			b.WriteString(fmt.Sprintf(" requires %s", *link.Claim))
		}
		b.WriteString("\n")
		tabs++
	}
	return b.String()
}
