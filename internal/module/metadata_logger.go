// metadata_logger.go adapts internal/plugins/logger.go's PluginLogger: that
// type tags every log line with a plugin name and marshals a JSON LogEntry
// by hand. zerolog's own .With() chaining already gives every module a
// scoped logger (logger.Module(name)), so the marshal-to-JSON-string
// mechanism isn't carried forward separately — only the thing PluginLogger
// was actually used for at load/unload time survives, as a pair of
// one-line helpers over the scoped logger.
package module

import "github.com/modcore/modcore/internal/logger"

// logLoaded records a module's declared metadata once it reaches Loaded.
func logLoaded(mod *Module) {
	logger.Module(mod.Name).Info().
		Str("author", mod.Author).
		Str("description", mod.Description).
		Str("version", mod.Version.String()).
		Str("bcversion", mod.BCVersion.String()).
		Msg("module loaded")
}

// logUnloaded records a module's transition out of Loaded during teardown.
func logUnloaded(mod *Module) {
	logger.Module(mod.Name).Info().
		Str("version", mod.Version.String()).
		Msg("module unloaded")
}
