package scripts

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestBuildExpandsIncludesAndComputesSHA(t *testing.T) {
	fsys := fstest.MapFS{
		"lua/doThing-2.lua": {Data: []byte("local x = 1\n-- @include \"helper\"\nreturn x\n")},
		"lua/includes/helper.lua": {Data: []byte("local function helper() return 2 end\n")},
	}

	p := New(fsys, "lua", StubMissingIncludes)
	commands, err := p.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	cmd, ok := commands["doThing"]
	if !ok {
		t.Fatalf("expected command %q, got %v", "doThing", commands)
	}
	if cmd.NumKeys != 2 {
		t.Fatalf("NumKeys = %d, want 2", cmd.NumKeys)
	}
	if !strings.Contains(cmd.Body, "local function helper()") {
		t.Fatalf("expected include to be inlined, got:\n%s", cmd.Body)
	}
	if strings.Contains(cmd.Body, "@include") {
		t.Fatalf("directive was not consumed:\n%s", cmd.Body)
	}
	if len(cmd.SHA) != 40 {
		t.Fatalf("SHA = %q, want 40 hex chars", cmd.SHA)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	fsys := fstest.MapFS{
		"lua/one.lua":             {Data: []byte("-- @include \"shared\"\nreturn 1\n")},
		"lua/includes/shared.lua": {Data: []byte("local function shared() end\n")},
	}

	p := New(fsys, "lua", StubMissingIncludes)
	first, err := p.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := p.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if first["one"].SHA != second["one"].SHA {
		t.Fatalf("SHA not stable across rebuilds: %s vs %s", first["one"].SHA, second["one"].SHA)
	}
}

func TestIncludeOnceWithinOneCommand(t *testing.T) {
	fsys := fstest.MapFS{
		"lua/cmd.lua": {Data: []byte(
			"-- @include \"a\"\n-- @include \"b\"\nreturn 1\n")},
		"lua/includes/a.lua": {Data: []byte("-- @include \"shared\"\nlocal x = 1\n")},
		"lua/includes/b.lua": {Data: []byte("-- @include \"shared\"\nlocal y = 2\n")},
		"lua/includes/shared.lua": {Data: []byte("local SENTINEL = true\n")},
	}

	p := New(fsys, "lua", StubMissingIncludes)
	commands, err := p.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	body := commands["cmd"].Body
	if n := strings.Count(body, "SENTINEL"); n != 1 {
		t.Fatalf("expected shared include exactly once, found %d times in:\n%s", n, body)
	}
}

func TestCyclicIncludeIsDetected(t *testing.T) {
	fsys := fstest.MapFS{
		"lua/cmd.lua":         {Data: []byte("-- @include \"a\"\nreturn 1\n")},
		"lua/includes/a.lua":  {Data: []byte("-- @include \"b\"\n")},
		"lua/includes/b.lua":  {Data: []byte("-- @include \"a\"\n")},
	}

	p := New(fsys, "lua", StubMissingIncludes)
	_, err := p.Build()
	if err == nil {
		t.Fatal("expected a cyclic include error, got nil")
	}
	if _, _, ok := Cycle(err); !ok {
		t.Fatalf("expected a cycle error, got %v (%T)", err, err)
	}
}

func TestMissingIncludeStubbedByDefault(t *testing.T) {
	fsys := fstest.MapFS{
		"lua/cmd.lua": {Data: []byte("-- @include \"nope\"\nreturn 1\n")},
	}

	p := New(fsys, "lua", StubMissingIncludes)
	commands, err := p.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(commands["cmd"].Body, "Include not found: nope") {
		t.Fatalf("expected stub comment, got:\n%s", commands["cmd"].Body)
	}
}

func TestMissingIncludeFailsInStrictMode(t *testing.T) {
	fsys := fstest.MapFS{
		"lua/cmd.lua": {Data: []byte("-- @include \"nope\"\nreturn 1\n")},
	}

	p := New(fsys, "lua", FailMissingIncludes)
	_, err := p.Build()
	if err == nil {
		t.Fatal("expected an error in strict mode, got nil")
	}
	if _, _, _, _, ok := IncludeNotFound(err); !ok {
		t.Fatalf("expected a not-found error, got %v (%T)", err, err)
	}
}

func TestNumKeysDefaultsToMinusOneWithoutSuffix(t *testing.T) {
	fsys := fstest.MapFS{
		"lua/variadic.lua": {Data: []byte("return #KEYS\n")},
	}

	p := New(fsys, "lua", StubMissingIncludes)
	commands, err := p.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if commands["variadic"].NumKeys != -1 {
		t.Fatalf("NumKeys = %d, want -1", commands["variadic"].NumKeys)
	}
}
