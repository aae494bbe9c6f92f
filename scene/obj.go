package scene

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/soypat/figures"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// ProgressFunc returns a writer that receives every byte read from an asset
// of total bytes (-1 when unknown). A returned [io.Closer] is closed when reading ends.
type ProgressFunc func(total int64, title string) io.Writer

// TerminalProgress renders a byte progress bar on the terminal.
func TerminalProgress(total int64, title string) io.Writer {
	return progressbar.DefaultBytes(total, title)
}

// OBJLoader loads Wavefront OBJ models. Names with an http or https scheme
// are fetched over the network, all others are opened in FS.
type OBJLoader struct {
	FS fs.FS
	// Client defaults to http.DefaultClient.
	Client   *http.Client
	Progress ProgressFunc
}

var _ Loader = (*OBJLoader)(nil)

// Load reads and parses the model at url. The returned group holds one mesh
// node per object or group in the file.
func (l *OBJLoader) Load(ctx context.Context, url string) (*Node, error) {
	rc, size, err := l.open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var r io.Reader = ctxReader{ctx: ctx, r: rc}
	if l.Progress != nil {
		w := l.Progress(size, "loading "+url)
		if c, ok := w.(io.Closer); ok {
			defer c.Close()
		}
		r = io.TeeReader(r, w)
	}
	root, err := ParseOBJ(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	root.Name = url
	figures.Logger().Info("model loaded", "url", url, "meshes", len(root.Children()))
	return root, nil
}

func (l *OBJLoader) open(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, 0, err
		}
		client := l.Client
		if client == nil {
			client = http.DefaultClient
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, 0, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, 0, fmt.Errorf("fetching %s: %s", url, resp.Status)
		}
		return resp.Body, resp.ContentLength, nil
	}
	if l.FS == nil {
		return nil, 0, errors.New("nil model filesystem")
	}
	f, err := l.FS.Open(url)
	if err != nil {
		return nil, 0, err
	}
	size := int64(-1)
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	return f, size, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr ctxReader) Read(b []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(b)
}

// ParseOBJ parses Wavefront OBJ geometry. Supported statements are v, vt, f,
// o and g; faces with more than three corners are split as a fan and negative
// indices count back from the latest vertex. Other statements are ignored.
func ParseOBJ(r io.Reader) (*Node, error) {
	p := objParser{root: NewGroup("")}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if err := p.statement(fields); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	p.flush()
	if len(p.root.Children()) == 0 {
		return nil, errors.New("no faces in OBJ data")
	}
	return p.root, nil
}

type objParser struct {
	root  *Node
	name  string
	verts []ms3.Vec
	uvs   []ms2.Vec
	mesh  Mesh
	// missingUV is set when a face of the current mesh lacks texture coordinates.
	missingUV bool
}

func (p *objParser) statement(fields []string) error {
	switch fields[0] {
	case "v":
		v, err := parseFloats(fields[1:], 3)
		if err != nil {
			return err
		}
		p.verts = append(p.verts, ms3.Vec{X: v[0], Y: v[1], Z: v[2]})
	case "vt":
		v, err := parseFloats(fields[1:], 2)
		if err != nil {
			return err
		}
		p.uvs = append(p.uvs, ms2.Vec{X: v[0], Y: v[1]})
	case "f":
		return p.face(fields[1:])
	case "o", "g":
		p.flush()
		p.name = strings.Join(fields[1:], " ")
	}
	return nil
}

func (p *objParser) face(corners []string) error {
	if len(corners) < 3 {
		return fmt.Errorf("face with %d vertices", len(corners))
	}
	pos := make([]ms3.Vec, len(corners))
	uv := make([]ms2.Vec, len(corners))
	hasUV := true
	for i, c := range corners {
		refs := strings.Split(c, "/")
		vi, err := resolveIndex(refs[0], len(p.verts))
		if err != nil {
			return fmt.Errorf("vertex %q: %w", c, err)
		}
		pos[i] = p.verts[vi]
		if len(refs) > 1 && refs[1] != "" {
			ti, err := resolveIndex(refs[1], len(p.uvs))
			if err != nil {
				return fmt.Errorf("texture coordinate %q: %w", c, err)
			}
			uv[i] = p.uvs[ti]
		} else {
			hasUV = false
		}
	}
	if !hasUV {
		p.missingUV = true
	}
	for i := 1; i+1 < len(pos); i++ {
		p.mesh.Triangles = append(p.mesh.Triangles, ms3.Triangle{pos[0], pos[i], pos[i+1]})
		p.mesh.UVs = append(p.mesh.UVs, [3]ms2.Vec{uv[0], uv[i], uv[i+1]})
	}
	return nil
}

// flush moves the faces read so far into a mesh node.
func (p *objParser) flush() {
	if len(p.mesh.Triangles) == 0 {
		return
	}
	mesh := p.mesh
	if p.missingUV {
		mesh.UVs = nil
	}
	p.root.Add(NewMesh(p.name, &mesh))
	p.mesh = Mesh{}
	p.missingUV = false
}

// resolveIndex converts a 1-based or negative OBJ index into a slice index.
func resolveIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	switch {
	case i > 0:
		i--
	case i < 0:
		i += n
	default:
		return 0, errors.New("zero index")
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("index out of range [0, %d)", n)
	}
	return i, nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("want %d components, got %d", n, len(fields))
	}
	v := make([]float32, n)
	for i := range v {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		v[i] = float32(f)
	}
	return v, nil
}
