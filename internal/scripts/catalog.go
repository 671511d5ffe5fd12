package scripts

import "embed"

//go:embed lua
var fragments embed.FS

// Catalog is the preprocessed set of atomic command scripts, keyed by
// command name (each Command carries its SHA-1), expanded once from the embedded Lua fragments at package init. Every
// caller shares the same Catalog; the preprocessor is deterministic so
// there is no benefit to rebuilding it per connection.
var Catalog = mustBuildCatalog()

func mustBuildCatalog() map[string]*Command {
	p := New(fragments, "lua", StubMissingIncludes)
	commands, err := p.Build()
	if err != nil {
		// The embedded fragments are compiled into the binary; a failure
		// here means a broken release, not a runtime condition to recover
		// from.
		panic(err)
	}
	return commands
}
