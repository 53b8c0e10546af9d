package shader

// PreProcessorBuilderOption is a function that configures a PreProcessor during construction.
type PreProcessorBuilderOption func(*preProcessor)

// WithImporter sets the function used to resolve @oxy:import annotations.
//
// Parameters:
//   - fn: the import function
//
// Returns:
//   - PreProcessorBuilderOption: a function that applies the importer
func WithImporter(fn ImportFunc) PreProcessorBuilderOption {
	return func(p *preProcessor) {
		p.importer = fn
	}
}
