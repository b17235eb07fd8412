package export

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// ErrUnknownFormat is returned for renderer ids that are not registered.
var ErrUnknownFormat = errors.New("unknown format")

// Renderer writes an export in one file format.
type Renderer interface {
	ID() string
	ContentType() string
	Extension() string
	Render(w io.Writer, data Data) error
}

// Registry looks renderers up by id.
type Registry struct {
	renderers map[string]Renderer
}

// NewRegistry registers the given renderers; later ids replace earlier ones.
func NewRegistry(renderers ...Renderer) *Registry {
	r := &Registry{renderers: map[string]Renderer{}}
	for _, renderer := range renderers {
		r.Add(renderer)
	}
	return r
}

// DefaultRegistry contains csv, xlsx, pdf, html and json.
func DefaultRegistry() *Registry {
	return NewRegistry(CSVRenderer{}, XLSXRenderer{}, PDFRenderer{}, HTMLRenderer{}, JSONRenderer{})
}

// Add registers a renderer.
func (r *Registry) Add(renderer Renderer) {
	r.renderers[strings.ToLower(renderer.ID())] = renderer
}

// Get returns the renderer registered for id.
func (r *Registry) Get(id string) (Renderer, error) {
	renderer, ok := r.renderers[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return nil, fmt.Errorf("%w %q, available: %s", ErrUnknownFormat, id, strings.Join(r.IDs(), ", "))
	}
	return renderer, nil
}

// IDs lists the registered ids sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.renderers))
	for id := range r.renderers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Filename is hourly-export-YYYYMMDD-YYYYMMDD.<ext>.
func Filename(begin, end time.Time, extension string) string {
	return fmt.Sprintf("hourly-export-%s-%s.%s", begin.Format("20060102"), end.Format("20060102"), strings.TrimPrefix(extension, "."))
}
