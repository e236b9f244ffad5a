package ach

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// programs is a parser over canned ASTs: a source file's text names the
// program it parses to.
func programs(progs map[string][]Node) Parser {
	return ParserFunc(func(ctx context.Context, filename string, src []byte) ([]Node, error) {
		nodes, ok := progs[strings.TrimSpace(string(src))]
		if !ok {
			return nil, fmt.Errorf("%s: unknown program %q", filename, src)
		}
		return nodes, nil
	})
}

func writeModule(t *testing.T, dir, name, program string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(program), 0o644))
}

func TestImportBuiltinModule(t *testing.T) {
	v := eval(t,
		&Import{Module: "linalg", Items: []ImportItem{{Name: "dot"}, {Name: "norm", Alias: "magnitude"}}},
		call("magnitude", nums(3, 4)),
	)
	assert.InDelta(t, 5, number(t, v), 1e-12)

	err := runErr(t, NewInterpreter(), &Import{Module: "linalg", Items: []ImportItem{{Name: "sqrt"}}})
	assert.Contains(t, err.Error(), "Module 'linalg' has no function 'sqrt'")

	err = runErr(t, NewInterpreter(), &Import{Module: "nope", Items: []ImportItem{{Name: "x"}}})
	assert.Contains(t, err.Error(), "Unknown module 'nope'")
}

func TestImportSourceModule(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "stats.ach", "stats")
	writeModule(t, dir, "main.ach", "main")

	parser := programs(map[string][]Node{
		"stats": {
			let("square", lambda(bin(OpMul, ref("x"), ref("x")), "x")),
			let("hidden", num(1)),
			&Export{Items: []ImportItem{{Name: "square"}, {Name: "square", Alias: "sq"}}},
		},
		"main": {
			&Import{Module: "./stats", Items: []ImportItem{{Name: "sq"}}},
			call("sq", num(7)),
		},
	})

	i := NewInterpreter(WithDir(dir), WithParser(parser))
	ctx, _ := testContext(t)
	v, err := i.EvalFile(ctx, filepath.Join(dir, "main.ach"))
	require.NoError(t, err)
	assert.Equal(t, 49.0, number(t, v))

	err = runErr(t, i, &Import{Module: "stats.ach", Items: []ImportItem{{Name: "hidden"}}})
	assert.Contains(t, err.Error(), "does not export 'hidden'")
}

func TestImportSearchPaths(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib")
	writeModule(t, lib, "consts.ach", "consts")

	parser := programs(map[string][]Node{
		"consts": {let("answer", num(42)), &Export{Items: []ImportItem{{Name: "answer"}}}},
	})
	cfg := DefaultConfig()
	cfg.Modules.Paths = []string{lib}

	i := NewInterpreter(WithDir(dir), WithParser(parser), WithConfig(cfg))
	v := run(t, i, &Import{Module: "consts.ach", Items: []ImportItem{{Name: "answer"}}}, ref("answer"))
	assert.Equal(t, 42.0, number(t, v))

	err := runErr(t, NewInterpreter(WithDir(dir), WithParser(parser)), &Import{Module: "consts.ach", Items: []ImportItem{{Name: "answer"}}})
	assert.Contains(t, err.Error(), "Module not found")
}

func TestModulesAreEvaluatedOnce(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "noisy.ach", "noisy")

	loads := 0
	parser := ParserFunc(func(ctx context.Context, filename string, src []byte) ([]Node, error) {
		loads++
		return []Node{let("n", num(1)), &Export{Items: []ImportItem{{Name: "n"}}}}, nil
	})
	i := NewInterpreter(WithDir(dir), WithParser(parser))
	run(t, i,
		&Import{Module: "./noisy", Items: []ImportItem{{Name: "n"}}},
		&Import{Module: "./noisy", Items: []ImportItem{{Name: "n", Alias: "m"}}},
	)
	assert.Equal(t, 1, loads)
}

func TestCircularImport(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "a.ach", "a")
	writeModule(t, dir, "b.ach", "b")

	parser := programs(map[string][]Node{
		"a": {&Import{Module: "./b", Items: []ImportItem{{Name: "y"}}}, let("x", num(1)), &Export{Items: []ImportItem{{Name: "x"}}}},
		"b": {&Import{Module: "./a", Items: []ImportItem{{Name: "x"}}}, let("y", num(2)), &Export{Items: []ImportItem{{Name: "y"}}}},
	})
	err := runErr(t, NewInterpreter(WithDir(dir), WithParser(parser)), &Import{Module: "./a", Items: []ImportItem{{Name: "x"}}})
	assert.Contains(t, err.Error(), "Circular import")
}

func TestImportWithoutParser(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "m.ach", "m")
	err := runErr(t, NewInterpreter(WithDir(dir)), &Import{Module: "./m", Items: []ImportItem{{Name: "x"}}})
	assert.Contains(t, err.Error(), "no parser configured")
}

func TestExportUndefined(t *testing.T) {
	err := runErr(t, NewInterpreter(), &Export{Items: []ImportItem{{Name: "ghost"}}})
	assert.Equal(t, KindUndefinedVariable, ErrorKind(err))
}
