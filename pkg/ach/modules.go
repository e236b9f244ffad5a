package ach

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/vito/achronyme/pkg/ioctx"
)

// ImportItem is `name` or `name as alias` in an import or export list.
type ImportItem struct {
	Name  string
	Alias string
}

// Local is the name the item is bound to.
func (it ImportItem) Local() string {
	if it.Alias != "" {
		return it.Alias
	}
	return it.Name
}

// Import is `import { a, b as c } from "module"`. The module is either a
// builtin module name or a path to a source file.
type Import struct {
	Items  []ImportItem
	Module string
	Loc    *SourceLocation
}

var _ Node = (*Import)(nil)

func (im *Import) GetSourceLocation() *SourceLocation { return im.Loc }
func (im *Import) Walk(fn func(Node) bool)           { fn(im) }

func (im *Import) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return WithEvalErrorHandling(ctx, im, func() (Value, error) {
		if isFileModule(im.Module) {
			return NullValue{}, i.importFile(ctx, im.Module, im.Items)
		}

		if len(ModuleBuiltins(im.Module)) == 0 {
			return nil, undefinedf("Unknown module '%s'", im.Module)
		}
		for _, item := range im.Items {
			def, ok := LookupBuiltin(item.Name)
			if !ok || def.Module != im.Module {
				return nil, undefinedf("Module '%s' has no function '%s'", im.Module, item.Name)
			}
		}
		for _, item := range im.Items {
			i.imports[item.Local()] = item.Name
		}
		return NullValue{}, nil
	})
}

func isFileModule(name string) bool {
	return strings.HasSuffix(name, ".ach") ||
		strings.ContainsAny(name, `/\`) ||
		strings.HasPrefix(name, ".")
}

// Export is `export { a, b as c }`.
type Export struct {
	Items []ImportItem
	Loc   *SourceLocation
}

var _ Node = (*Export)(nil)

func (ex *Export) GetSourceLocation() *SourceLocation { return ex.Loc }
func (ex *Export) Walk(fn func(Node) bool)           { fn(ex) }

func (ex *Export) Eval(ctx context.Context, i *Interpreter) (Value, error) {
	return WithEvalErrorHandling(ctx, ex, func() (Value, error) {
		for _, item := range ex.Items {
			v, ok := i.env.Lookup(item.Name)
			if !ok {
				return nil, undefinedf("Cannot export undefined name '%s'", item.Name)
			}
			i.exports[item.Local()] = Deref(v)
		}
		return NullValue{}, nil
	})
}

// moduleCache holds the exports of every source module loaded by an
// interpreter and the modules it imports, keyed by absolute path.
type moduleCache struct {
	exports map[string]map[string]Value
	loading map[string]bool
}

func newModuleCache() *moduleCache {
	return &moduleCache{
		exports: map[string]map[string]Value{},
		loading: map[string]bool{},
	}
}

func (i *Interpreter) importFile(ctx context.Context, spec string, items []ImportItem) error {
	path, err := i.resolveModule(spec)
	if err != nil {
		return err
	}
	exports, err := i.loadModule(ctx, path)
	if err != nil {
		return err
	}
	for _, item := range items {
		if _, ok := exports[item.Name]; !ok {
			return undefinedf("Module '%s' does not export '%s'", spec, item.Name)
		}
	}
	for _, item := range items {
		i.env.Define(item.Local(), exports[item.Name])
	}
	return nil
}

// resolveModule finds spec relative to the importing module's directory,
// then along the configured search paths.
func (i *Interpreter) resolveModule(spec string) (string, error) {
	name := spec
	if filepath.Ext(name) == "" {
		name += ".ach"
	}
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", runtimeErrorf("Module not found: '%s'", spec)
		}
		return name, nil
	}

	candidates := []string{filepath.Join(i.dir, name)}
	for _, dir := range i.config.Modules.Paths {
		candidates = append(candidates, filepath.Join(dir, name))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return filepath.Abs(c)
		}
	}
	return "", runtimeErrorf("Module not found: '%s'", spec)
}

func (i *Interpreter) loadModule(ctx context.Context, path string) (map[string]Value, error) {
	cache := i.modules
	if exports, ok := cache.exports[path]; ok {
		return exports, nil
	}
	if cache.loading[path] {
		return nil, runtimeErrorf("Circular import of '%s'", path)
	}
	if i.parser == nil {
		return nil, runtimeErrorf("Cannot import '%s': no parser configured", path)
	}

	cache.loading[path] = true
	defer delete(cache.loading, path)

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	child := i.child(filepath.Dir(path))
	if _, err := child.EvalSource(ctx, path, src); err != nil {
		return nil, err
	}
	cache.exports[path] = child.exports

	ioctx.LoggerFromContext(ctx).Debug("loaded module",
		"path", path,
		"exports", len(child.exports))
	return child.exports, nil
}
