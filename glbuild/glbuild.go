// Package glbuild generates and inspects the GLSL source of the flat color program
// used to draw figures: per-vertex position and color attributes transformed by
// projection and model-view matrix uniforms, with no lighting.
package glbuild

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Names of the program interface. Backends resolve these after linking.
const (
	AttribPosition    = "vertexPos"
	AttribColor       = "vertexColor"
	UniformProjection = "projectionMatrix"
	UniformModelView  = "modelViewMatrix"
	varyingColor      = "vColor"
)

// Dialect selects the GLSL flavor written by a [Programmer].
type Dialect uint8

const (
	// GLSL410 is desktop OpenGL 4.1 core profile GLSL.
	GLSL410 Dialect = iota
	// GLSLES100 is OpenGL ES 2.0 / WebGL 1 GLSL.
	GLSLES100
)

func (d Dialect) String() string {
	switch d {
	case GLSL410:
		return "GLSL 4.10"
	case GLSLES100:
		return "GLSL ES 1.00"
	}
	return "Dialect(" + strconv.Itoa(int(d)) + ")"
}

// Programmer writes the flat color program for a given dialect.
type Programmer struct {
	dialect Dialect
	// Precision is the fragment float precision qualifier for ES dialects.
	Precision string
	scratch   []byte
}

// NewDefaultProgrammer returns a Programmer for desktop core profile GL.
func NewDefaultProgrammer() *Programmer {
	return NewProgrammer(GLSL410)
}

// NewProgrammer returns a Programmer writing the given dialect.
func NewProgrammer(d Dialect) *Programmer {
	return &Programmer{
		dialect:   d,
		Precision: "lowp",
		scratch:   make([]byte, 0, 512),
	}
}

// Dialect returns the dialect the programmer writes.
func (p *Programmer) Dialect() Dialect { return p.dialect }

// WriteVertex writes the vertex stage source to w.
func (p *Programmer) WriteVertex(w io.Writer) (int, error) {
	b := p.appendHeader(p.scratch[:0])
	in, out := p.qualifiers()
	b = appendDecl(b, in, "vec3", AttribPosition)
	b = appendDecl(b, in, "vec4", AttribColor)
	b = appendDecl(b, "uniform", "mat4", UniformModelView)
	b = appendDecl(b, "uniform", "mat4", UniformProjection)
	b = appendDecl(b, out, "vec4", varyingColor)
	b = append(b, "void main(void) {\n"...)
	b = append(b, "\tgl_Position = "+UniformProjection+" * "+UniformModelView+" * vec4("+AttribPosition+", 1.0);\n"...)
	b = append(b, "\t"+varyingColor+" = "+AttribColor+";\n"...)
	b = append(b, "}\n"...)
	p.scratch = b
	return w.Write(b)
}

// WriteFragment writes the fragment stage source to w.
func (p *Programmer) WriteFragment(w io.Writer) (int, error) {
	b := p.appendHeader(p.scratch[:0])
	if p.dialect == GLSLES100 {
		prec := p.Precision
		if prec == "" {
			prec = "mediump"
		}
		b = append(b, "precision "+prec+" float;\n"...)
		b = appendDecl(b, "varying", "vec4", varyingColor)
		b = append(b, "void main(void) {\n\tgl_FragColor = "+varyingColor+";\n}\n"...)
	} else {
		b = appendDecl(b, "in", "vec4", varyingColor)
		b = appendDecl(b, "out", "vec4", "fragColor")
		b = append(b, "void main(void) {\n\tfragColor = "+varyingColor+";\n}\n"...)
	}
	p.scratch = b
	return w.Write(b)
}

// Sources returns the vertex and fragment sources as strings.
func (p *Programmer) Sources() (vertex, fragment string, err error) {
	var buf bytes.Buffer
	n, err := p.WriteVertex(&buf)
	if err != nil {
		return "", "", err
	} else if n != buf.Len() {
		return "", "", fmt.Errorf("wrote %d bytes but WriteVertex counted %d", buf.Len(), n)
	}
	vertex = buf.String()
	buf.Reset()
	_, err = p.WriteFragment(&buf)
	if err != nil {
		return "", "", err
	}
	return vertex, buf.String(), nil
}

func (p *Programmer) appendHeader(b []byte) []byte {
	if p.dialect == GLSL410 {
		b = append(b, "#version 410 core\n"...)
	}
	return b
}

func (p *Programmer) qualifiers() (in, out string) {
	if p.dialect == GLSLES100 {
		return "attribute", "varying"
	}
	return "in", "out"
}

func appendDecl(b []byte, qualifier, typename, name string) []byte {
	b = append(b, qualifier...)
	b = append(b, ' ')
	b = append(b, typename...)
	b = append(b, ' ')
	b = append(b, name...)
	return append(b, ";\n"...)
}

// Variable is a global declaration in a shader stage.
type Variable struct {
	Qualifier string // attribute, in, out, varying or uniform.
	Type      string // vec3, vec4, mat4...
	Name      string
}

// Interface is the set of global declarations of a shader stage.
type Interface struct {
	Inputs   []Variable
	Outputs  []Variable
	Uniforms []Variable
	// PositionTerms lists the identifiers multiplied, in order, in the gl_Position assignment.
	// Empty for fragment stages.
	PositionTerms []string
}

// Lookup returns the declared variable with the given name.
func (iface *Interface) Lookup(name string) (Variable, bool) {
	for _, set := range [3][]Variable{iface.Inputs, iface.Uniforms, iface.Outputs} {
		for _, v := range set {
			if v.Name == name {
				return v, true
			}
		}
	}
	return Variable{}, false
}

// ParseInterface scans a shader stage's source for global declarations and checks that
// it defines main with balanced braces. It does not type check statements.
func ParseInterface(src string) (iface Interface, err error) {
	if strings.TrimSpace(src) == "" {
		return iface, errors.New("empty shader source")
	}
	depth := 0
	hasMain := false
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		line = stripComment(line)
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed[0] == '#' {
			continue
		}
		if depth == 0 {
			switch {
			case strings.HasPrefix(trimmed, "precision "):
			case strings.HasPrefix(trimmed, "void main"):
				hasMain = true
			default:
				v, ok, err := parseDecl(trimmed)
				if err != nil {
					return iface, fmt.Errorf("line %d: %w", i+1, err)
				}
				if ok {
					switch v.Qualifier {
					case "attribute", "in":
						iface.Inputs = append(iface.Inputs, v)
					case "uniform":
						iface.Uniforms = append(iface.Uniforms, v)
					case "varying", "out":
						iface.Outputs = append(iface.Outputs, v)
					}
				}
			}
		}
		if idx := strings.Index(trimmed, "gl_Position"); idx >= 0 && depth > 0 {
			iface.PositionTerms = positionTerms(trimmed[idx:])
		}
		depth += strings.Count(trimmed, "{") - strings.Count(trimmed, "}")
		if depth < 0 {
			return iface, fmt.Errorf("line %d: unbalanced braces", i+1)
		}
	}
	if depth != 0 {
		return iface, errors.New("unbalanced braces")
	} else if !hasMain {
		return iface, errors.New("missing main function")
	}
	return iface, nil
}

func parseDecl(stmt string) (v Variable, ok bool, err error) {
	if !strings.HasSuffix(stmt, ";") {
		return v, false, fmt.Errorf("expected declaration, got %q", stmt)
	}
	fields := strings.Fields(strings.TrimSuffix(stmt, ";"))
	// Skip precision qualifiers such as "uniform lowp vec4 c;".
	if len(fields) == 4 && isPrecision(fields[1]) {
		fields = append(fields[:1], fields[2:]...)
	}
	if len(fields) != 3 {
		return v, false, fmt.Errorf("unsupported declaration %q", stmt)
	}
	switch fields[0] {
	case "attribute", "in", "uniform", "varying", "out":
	default:
		return v, false, fmt.Errorf("unknown qualifier %q", fields[0])
	}
	return Variable{Qualifier: fields[0], Type: fields[1], Name: fields[2]}, true, nil
}

func isPrecision(s string) bool {
	return s == "lowp" || s == "mediump" || s == "highp"
}

// positionTerms extracts identifiers of the right hand side of a gl_Position assignment.
func positionTerms(stmt string) []string {
	_, rhs, ok := strings.Cut(stmt, "=")
	if !ok {
		return nil
	}
	rhs, _, _ = strings.Cut(rhs, ";")
	var terms []string
	for _, f := range strings.FieldsFunc(rhs, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	}) {
		if f[0] >= '0' && f[0] <= '9' {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

func stripComment(line string) string {
	if i := strings.Index(line, "//"); i >= 0 {
		return line[:i]
	}
	return line
}
