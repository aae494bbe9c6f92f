package gldraw

import (
	"errors"
	"fmt"

	"github.com/soypat/figures/glbuild"
)

// Program is a linked shader program with the locations of the flat color interface
// resolved once after linking.
type Program struct {
	ctx Context
	id  ProgramID

	Position   Attrib
	Color      Attrib
	Projection Uniform
	ModelView  Uniform
}

// NewColorProgram compiles the flat color program written in the context's dialect.
func NewColorProgram(ctx Context) (*Program, error) {
	vertex, fragment, err := glbuild.NewProgrammer(ctx.Dialect()).Sources()
	if err != nil {
		return nil, err
	}
	return NewProgram(ctx, vertex, fragment)
}

// NewProgram compiles and links the given sources and resolves the locations named by
// [glbuild.AttribPosition], [glbuild.AttribColor], [glbuild.UniformProjection] and
// [glbuild.UniformModelView]. No program is returned on failure.
func NewProgram(ctx Context, vertexSrc, fragmentSrc string) (*Program, error) {
	if ctx == nil {
		return nil, ErrNoContext
	}
	id, err := ctx.CompileProgram(vertexSrc, fragmentSrc)
	if err != nil {
		return nil, err
	} else if id == 0 {
		return nil, errors.New("compile returned zero program id")
	}
	p := &Program{ctx: ctx, id: id}
	var errs [4]error
	p.Position, errs[0] = ctx.AttribLocation(id, glbuild.AttribPosition)
	p.Color, errs[1] = ctx.AttribLocation(id, glbuild.AttribColor)
	p.Projection, errs[2] = ctx.UniformLocation(id, glbuild.UniformProjection)
	p.ModelView, errs[3] = ctx.UniformLocation(id, glbuild.UniformModelView)
	if err = errors.Join(errs[:]...); err != nil {
		ctx.DeleteProgram(id)
		return nil, fmt.Errorf("resolving program interface: %w", err)
	}
	return p, nil
}

// ID returns the program handle.
func (p *Program) ID() ProgramID { return p.id }

// Use makes p the current program.
func (p *Program) Use() { p.ctx.UseProgram(p.id) }

// Delete releases the program. p must not be used afterwards.
func (p *Program) Delete() {
	if p.id != 0 {
		p.ctx.DeleteProgram(p.id)
		p.id = 0
	}
}
