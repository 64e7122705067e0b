package resolve

import (
	"errors"
	"strings"

	"github.com/matzehuels/stepgrid/pkg/binding"
	errs "github.com/matzehuels/stepgrid/pkg/errors"
	"github.com/matzehuels/stepgrid/pkg/scene"
	"github.com/matzehuels/stepgrid/pkg/variable"
)

// text returns the display text of a non-array payload at snap.
func (r *Resolver) text(p scene.Payload, snap variable.Snapshot) (string, error) {
	switch v := p.(type) {
	case *scene.Scalar:
		return scalarText(v, snap)
	case *scene.Label:
		return r.Interpolate(v.Text, snap)
	case *scene.Panel:
		return v.Title, nil
	}
	return "", nil
}

func scalarText(s *scene.Scalar, snap variable.Snapshot) (string, error) {
	value := s.Value
	var err error
	if v, ok := snap.Lookup(s.VarName); ok {
		value = v.String()
	} else {
		err = errs.New(errs.ErrCodeBindingUnavailable, "variable %q unavailable", s.VarName)
	}

	switch s.Mode {
	case scene.DisplayValue:
		return value, err
	case scene.DisplayName:
		return s.VarName, err
	}
	return s.VarName + " = " + value, err
}

// Interpolate replaces every {expr} in tmpl with its value at snap. A bare
// variable name of any type renders with its display form; anything else is
// evaluated as a formula. "{{" and "}}" are literal braces. Segments that fail
// are left as written and their errors returned.
func (r *Resolver) Interpolate(tmpl string, snap variable.Snapshot) (string, error) {
	if !strings.ContainsAny(tmpl, "{}") {
		return tmpl, nil
	}

	var (
		out  strings.Builder
		fail []error
	)
	for i := 0; i < len(tmpl); i++ {
		ch := tmpl[i]
		switch {
		case ch == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			out.WriteByte('{')
			i++
		case ch == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			out.WriteByte('}')
			i++
		case ch == '{':
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				out.WriteString(tmpl[i:])
				i = len(tmpl)
				continue
			}
			src := tmpl[i+1 : i+1+end]
			text, err := r.segment(src, snap)
			if err != nil {
				fail = append(fail, err)
				out.WriteString(tmpl[i : i+2+end])
			} else {
				out.WriteString(text)
			}
			i += end + 1
		default:
			out.WriteByte(ch)
		}
	}
	return out.String(), errors.Join(fail...)
}

func (r *Resolver) segment(src string, snap variable.Snapshot) (string, error) {
	src = strings.TrimSpace(src)
	if v, ok := snap.Lookup(src); ok {
		return v.String(), nil
	}
	f, err := r.bind.Eval(binding.Formula(src), snap)
	if err != nil {
		return "", errs.Wrap(errs.GetCode(err), err, "{%s}", src)
	}
	return binding.FormatValue(f), nil
}
