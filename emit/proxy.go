package emit

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/a-peyrard/koragraph"
	"github.com/a-peyrard/koragraph/typesys"
)

func proxyName(c *koragraph.Component) string {
	return fmt.Sprintf("proxy%d", c.Index)
}

// proxy writes a struct forwarding every method of the proxied interface to the promised
// component.
func (f *file) proxy(out *bytes.Buffer, c *koragraph.Component) error {
	d, ok := c.Type.(*typesys.Declared)
	if !ok || !d.Element.Interface {
		return fmt.Errorf("%s is not an interface, a Go proxy can only stand for an interface: make the cycle go through an interface", c.Type)
	}
	typeName, err := f.typeName(d)
	if err != nil {
		return err
	}
	name := proxyName(c)
	subst := d.Element.Bind(d)

	fmt.Fprintf(out, "// %s stands for %s until it is constructed.\n", name, typeName)
	fmt.Fprintf(out, "type %s struct {\ntarget %s.Promise[%s]\n}\n\n", name, f.use(typesys.RuntimePackage), typeName)

	for _, m := range d.Element.Methods {
		params := make([]string, len(m.Params))
		args := make([]string, len(m.Params))
		for i, p := range m.Params {
			p = typesys.Replace(p, subst)
			args[i] = fmt.Sprintf("a%d", i)
			variadic := m.Variadic && i == len(m.Params)-1
			if variadic {
				array, ok := p.(*typesys.Array)
				if !ok {
					return fmt.Errorf("variadic parameter of %s.%s is not a slice", typeName, m.Name)
				}
				p = array.Elem
			}
			paramType, err := f.typeName(p)
			if err != nil {
				return err
			}
			if variadic {
				params[i] = fmt.Sprintf("%s ...%s", args[i], paramType)
				args[i] += "..."
			} else {
				params[i] = fmt.Sprintf("%s %s", args[i], paramType)
			}
		}

		results := make([]string, len(m.Results))
		for i, r := range m.Results {
			if results[i], err = f.typeName(typesys.Replace(r, subst)); err != nil {
				return err
			}
		}

		fmt.Fprintf(out, "func (p *%s) %s(%s)%s {\n", name, m.Name, strings.Join(params, ", "), signatureResults(results))
		call := fmt.Sprintf("p.target.Get().%s(%s)", m.Name, strings.Join(args, ", "))
		if len(results) > 0 {
			call = "return " + call
		}
		out.WriteString(call + "\n}\n\n")
	}
	return nil
}

func signatureResults(results []string) string {
	switch len(results) {
	case 0:
		return ""
	case 1:
		return " " + results[0]
	default:
		return " (" + strings.Join(results, ", ") + ")"
	}
}
