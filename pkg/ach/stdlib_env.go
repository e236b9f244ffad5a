package ach

import (
	"context"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"github.com/vito/achronyme/pkg/ioctx"
	"github.com/vito/achronyme/pkg/persist"
)

// RestoreMode selects how restored bindings combine with the session.
type RestoreMode string

const (
	// RestoreMerge adds bindings, keeping existing names unless
	// overwrite is set.
	RestoreMerge RestoreMode = "merge"
	// RestoreReplace clears the environment before adding bindings.
	RestoreReplace RestoreMode = "replace"
	// RestoreNamespace binds a single record holding every binding.
	RestoreNamespace RestoreMode = "namespace"
)

// RestoreOptions controls RestoreEnv.
type RestoreOptions struct {
	persist.LoadOptions

	Mode      RestoreMode
	Overwrite bool
	Namespace string
}

func registerEnvBuiltins() {
	Builtin("save_env").
		Module("env").
		Doc("writes the serializable bindings of the environment to a snapshot file").
		Params("target").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			path, opts, err := i.saveOptions(args)
			if err != nil {
				return nil, err
			}
			if _, err := i.SaveEnv(ctx, path, opts); err != nil {
				return nil, err
			}
			return BoolValue{Val: true}, nil
		})

	Builtin("restore_env").
		Module("env").
		Doc("loads a snapshot file into the environment").
		Params("target").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			path, opts, err := i.restoreOptions(args)
			if err != nil {
				return nil, err
			}
			if _, err := i.RestoreEnv(ctx, path, opts); err != nil {
				return nil, err
			}
			return BoolValue{Val: true}, nil
		})

	Builtin("env_info").
		Module("env").
		Doc("metadata of a snapshot file, without loading its bindings").
		Params("path").
		Impl(func(ctx context.Context, i *Interpreter, args Args) (Value, error) {
			path, err := args.String(0)
			if err != nil {
				return nil, err
			}
			meta, err := persist.Inspect(i.resolvePath(path))
			if err != nil {
				return nil, err
			}
			return MetadataValue(meta), nil
		})
}

// SaveEnv snapshots every visible binding. Unsupported values are skipped
// and reported in the result.
func (i *Interpreter) SaveEnv(ctx context.Context, path string, opts persist.SaveOptions) (*persist.SaveResult, error) {
	bindings := map[string]persist.Value{}
	for name, v := range i.env.Snapshot() {
		bindings[name] = ToPersist(v)
	}
	path = i.resolvePath(path)
	res, err := persist.Save(path, bindings, opts)
	if err != nil {
		return nil, err
	}
	ioctx.LoggerFromContext(ctx).Debug("environment saved",
		"path", path,
		"bindings", res.Metadata.NumBindings,
		"bytes", res.Size)
	return res, nil
}

// RestoreEnv loads a snapshot into the current scope and returns the
// names it bound. Replace mode clears and refills the global frame instead.
func (i *Interpreter) RestoreEnv(ctx context.Context, path string, opts RestoreOptions) ([]string, error) {
	path = i.resolvePath(path)
	body, err := persist.Load(path, opts.LoadOptions)
	if err != nil {
		return nil, err
	}
	values := make(map[string]Value, len(body.Bindings))
	for _, name := range slices.Sorted(maps.Keys(body.Bindings)) {
		v, err := FromPersist(body.Bindings[name])
		if err != nil {
			ioctx.LoggerFromContext(ctx).Warn("binding not restored", "name", name, "error", err)
			continue
		}
		values[name] = v
	}

	var bound []string
	switch opts.Mode {
	case RestoreReplace:
		// Replace swaps out the global bindings. Locals of the frames
		// between here and the root stay in scope.
		root := i.env.Root()
		root.Clear()
		for _, name := range slices.Sorted(maps.Keys(values)) {
			root.Define(name, values[name])
			bound = append(bound, name)
		}
	case RestoreMerge, "":
		for _, name := range slices.Sorted(maps.Keys(values)) {
			if !opts.Overwrite && i.env.Has(name) {
				continue
			}
			i.env.Define(name, values[name])
			bound = append(bound, name)
		}
	case RestoreNamespace:
		if opts.Namespace == "" {
			return nil, typeErrorf("namespace mode requires 'namespace' field")
		}
		i.env.Define(opts.Namespace, NewRecord(values))
		bound = []string{opts.Namespace}
	default:
		return nil, typeErrorf("Invalid mode '%s', must be 'merge', 'replace', or 'namespace'", opts.Mode)
	}

	ioctx.LoggerFromContext(ctx).Debug("environment restored",
		"path", path,
		"mode", opts.Mode,
		"bound", len(bound))
	return bound, nil
}

// resolvePath makes snapshot paths relative to the interpreter's
// directory.
func (i *Interpreter) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(i.dir, path)
}

// MetadataValue renders snapshot metadata as a record.
func MetadataValue(m *persist.Metadata) RecordValue {
	tags, _ := ToValue(m.Tags)
	names, _ := ToValue(m.BindingNames)
	return NewRecord(map[string]Value{
		"id":            StringValue{Val: m.ID},
		"created_by":    StringValue{Val: m.CreatedBy},
		"created_at":    StringValue{Val: m.Created().UTC().Format(time.RFC3339)},
		"platform":      StringValue{Val: m.Platform},
		"num_bindings":  NumberValue{Val: float64(m.NumBindings)},
		"description":   StringValue{Val: m.Description},
		"tags":          tags,
		"binding_names": names,
	})
}

func (i *Interpreter) saveOptions(args Args) (string, persist.SaveOptions, error) {
	opts := i.config.SaveOptions()
	switch target := args.Get(0).(type) {
	case StringValue:
		return target.Val, opts, nil
	case RecordValue:
		o := recordOptions{name: "save_env", rec: target}
		path := o.text("path", "")
		if path == "" && o.err == nil {
			o.err = typeErrorf("save_env: options record needs a 'path'")
		}
		opts.Compress = o.boolean("compress", opts.Compress)
		opts.CompressionLevel = o.integer("compression_level", opts.CompressionLevel)
		if o.err == nil && (opts.CompressionLevel < 1 || opts.CompressionLevel > 22) {
			o.err = typeErrorf("compression_level must be between 1 and 22")
		}
		opts.Description = o.text("description", "")
		opts.Tags = o.texts("tags")
		opts.IncludeOnly = o.texts("include_only")
		opts.Exclude = o.texts("exclude")
		opts.AllowOverwrite = o.boolean("allow_overwrite", false)
		return path, opts, o.err
	}
	return "", opts, args.mismatch(0, "a String path or a Record of options")
}

func (i *Interpreter) restoreOptions(args Args) (string, RestoreOptions, error) {
	opts := RestoreOptions{
		LoadOptions: i.config.LoadOptions(),
		Mode:        RestoreMerge,
	}
	switch target := args.Get(0).(type) {
	case StringValue:
		return target.Val, opts, nil
	case RecordValue:
		o := recordOptions{name: "restore_env", rec: target}
		path := o.text("path", "")
		if path == "" && o.err == nil {
			o.err = typeErrorf("restore_env: options record needs a 'path'")
		}
		opts.Mode = RestoreMode(o.text("mode", string(RestoreMerge)))
		opts.Overwrite = o.boolean("overwrite", false)
		opts.Namespace = o.text("namespace", "")
		opts.IncludeOnly = o.texts("include_only")
		opts.Exclude = o.texts("exclude")
		opts.VerifyChecksum = o.boolean("verify_checksum", opts.VerifyChecksum)
		opts.StrictVersion = o.boolean("strict_version", opts.StrictVersion)
		return path, opts, o.err
	}
	return "", opts, args.mismatch(0, "a String path or a Record of options")
}

// recordOptions reads optional fields of an options record, keeping the
// first type error.
type recordOptions struct {
	name string
	rec  RecordValue
	err  error
}

func (o *recordOptions) field(key string) (Value, bool) {
	if o.err != nil {
		return nil, false
	}
	v, ok := o.rec.Get(key)
	if !ok {
		return nil, false
	}
	return Deref(v), true
}

func (o *recordOptions) fail(key, want string, v Value) {
	o.err = typeErrorf("%s: option '%s' must be %s, got %s", o.name, key, want, typeString(InferType(v)))
}

func (o *recordOptions) text(key, def string) string {
	v, ok := o.field(key)
	if !ok {
		return def
	}
	s, ok := v.(StringValue)
	if !ok {
		o.fail(key, "a String", v)
		return def
	}
	return s.Val
}

func (o *recordOptions) boolean(key string, def bool) bool {
	v, ok := o.field(key)
	if !ok {
		return def
	}
	b, ok := v.(BoolValue)
	if !ok {
		o.fail(key, "a Boolean", v)
		return def
	}
	return b.Val
}

func (o *recordOptions) integer(key string, def int) int {
	v, ok := o.field(key)
	if !ok {
		return def
	}
	n, ok := v.(NumberValue)
	if !ok || n.Val != float64(int(n.Val)) {
		o.fail(key, "an integer", v)
		return def
	}
	return int(n.Val)
}

func (o *recordOptions) texts(key string) []string {
	v, ok := o.field(key)
	if !ok {
		return nil
	}
	vec, ok := v.(VectorValue)
	if !ok {
		o.fail(key, "a Vector of Strings", v)
		return nil
	}
	out := make([]string, len(vec.Elements))
	for k, e := range vec.Elements {
		s, ok := Deref(e).(StringValue)
		if !ok {
			o.err = typeErrorf("%s: %s must be a vector of strings", o.name, key)
			return nil
		}
		out[k] = s.Val
	}
	return out
}
