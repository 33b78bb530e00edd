// Package pack provides types for reusable tool collections.
package pack

import (
	"fmt"

	"github.com/felixgeelhaar/agentstep/domain/tool"
)

// Pack is a collection of related tools offered to the model together.
type Pack struct {
	// Name is the unique identifier for the pack.
	Name string

	// Description explains what the pack provides.
	Description string

	// Version is the semantic version of the pack.
	Version string

	// Tools is the collection of tools in this pack.
	Tools []tool.Tool

	// Metadata holds additional pack information.
	Metadata map[string]string
}

// ToolNames returns the names of all tools in the pack as registered.
func (p *Pack) ToolNames() []string {
	names := make([]string, len(p.Tools))
	for i, t := range p.Tools {
		names[i] = t.Name()
	}
	return names
}

// GetTool returns a tool by name. Both the original and the sanitized
// spelling match.
func (p *Pack) GetTool(name string) (tool.Tool, bool) {
	want := tool.SanitizeName(name)
	for _, t := range p.Tools {
		if tool.SanitizeName(t.Name()) == want {
			return t, true
		}
	}
	return nil, false
}

// Install registers every tool of the pack.
func (p *Pack) Install(reg tool.Registry) error {
	for _, t := range p.Tools {
		if err := reg.Register(t); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidPack, p.Name, err)
		}
	}
	return nil
}

// Builder provides a fluent API for constructing packs.
type Builder struct {
	pack *Pack
}

// NewBuilder creates a new pack builder.
func NewBuilder(name string) *Builder {
	return &Builder{
		pack: &Pack{
			Name:     name,
			Tools:    make([]tool.Tool, 0),
			Metadata: make(map[string]string),
		},
	}
}

// WithDescription sets the pack description.
func (b *Builder) WithDescription(desc string) *Builder {
	b.pack.Description = desc
	return b
}

// WithVersion sets the pack version.
func (b *Builder) WithVersion(version string) *Builder {
	b.pack.Version = version
	return b
}

// AddTools adds tools to the pack.
func (b *Builder) AddTools(tools ...tool.Tool) *Builder {
	b.pack.Tools = append(b.pack.Tools, tools...)
	return b
}

// WithMetadata adds metadata to the pack.
func (b *Builder) WithMetadata(key, value string) *Builder {
	b.pack.Metadata[key] = value
	return b
}

// Build returns the constructed pack.
func (b *Builder) Build() *Pack {
	return b.pack
}
