package tool

// Registry is the catalog of tools offered to the model.
//
// Keys are sanitized names: registering "create-post" and then
// "create_post" keeps only the second, and lookups sanitize the requested
// name before matching. Implementations live in infrastructure.
type Registry interface {
	// Register adds a tool, replacing any tool with the same sanitized name.
	Register(tool Tool) error

	// Get retrieves a tool by name.
	Get(name string) (Tool, bool)

	// List returns all tools in registration order.
	List() []Tool

	// Names returns the sanitized names in registration order.
	Names() []string

	// Has checks if a tool is registered.
	Has(name string) bool

	// Len returns the number of registered tools.
	Len() int
}
