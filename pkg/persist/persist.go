// Package persist reads and writes environment snapshots: a small header,
// a MessagePack body holding metadata and bindings (optionally zstd
// compressed), and a trailing SHA-256 of the body as written.
package persist

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Metadata describes a snapshot without its bindings.
type Metadata struct {
	ID           string   `msgpack:"id"`
	CreatedBy    string   `msgpack:"created_by"`
	CreatedAt    int64    `msgpack:"created_at"`
	Platform     string   `msgpack:"platform"`
	NumBindings  int      `msgpack:"num_bindings"`
	Description  string   `msgpack:"description"`
	Tags         []string `msgpack:"tags"`
	BindingNames []string `msgpack:"binding_names"`
}

// Created returns CreatedAt as a time.
func (m Metadata) Created() time.Time {
	return time.Unix(m.CreatedAt, 0)
}

// Body is the decoded snapshot payload.
type Body struct {
	Metadata Metadata         `msgpack:"metadata"`
	Bindings map[string]Value `msgpack:"bindings"`
}

// Filter selects bindings by name. Patterns in both lists are an exact
// name, or a prefix followed by '*'.
type Filter struct {
	IncludeOnly []string
	Exclude     []string
}

// Allows reports whether name passes the filter.
func (f Filter) Allows(name string) bool {
	if f.IncludeOnly != nil && !slices.ContainsFunc(f.IncludeOnly, matcher(name)) {
		return false
	}
	return !slices.ContainsFunc(f.Exclude, matcher(name))
}

func matcher(name string) func(pattern string) bool {
	return func(pattern string) bool {
		if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
			return strings.HasPrefix(name, prefix)
		}
		return name == pattern
	}
}

type SaveOptions struct {
	Filter

	Compress         bool
	CompressionLevel int
	Description      string
	Tags             []string
	AllowOverwrite   bool

	// CreatedBy is recorded in the metadata; it defaults to "achronyme".
	CreatedBy string
}

// DefaultSaveOptions compresses with zstd at level 3.
func DefaultSaveOptions() SaveOptions {
	return SaveOptions{
		Compress:         true,
		CompressionLevel: 3,
	}
}

type LoadOptions struct {
	Filter

	VerifyChecksum bool
	StrictVersion  bool
}

// DefaultLoadOptions verifies the checksum and accepts older versions.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{VerifyChecksum: true}
}

// Skipped records a binding that was left out of a snapshot.
type Skipped struct {
	Name   string
	Reason string
}

type SaveResult struct {
	Metadata Metadata
	Skipped  []Skipped
	Size     int
}

// Encode renders bindings as snapshot bytes. Bindings that are filtered out
// are dropped silently; unsupported ones are logged and reported in
// SaveResult.Skipped.
func Encode(bindings map[string]Value, opts SaveOptions) ([]byte, *SaveResult, error) {
	res := &SaveResult{}
	kept := make(map[string]Value, len(bindings))
	for _, name := range slices.Sorted(maps.Keys(bindings)) {
		if !opts.Allows(name) {
			continue
		}
		v := bindings[name]
		if !v.Supported() {
			reason := v.reason()
			slog.Warn("binding is not serializable, skipping", "name", name, "reason", reason)
			res.Skipped = append(res.Skipped, Skipped{Name: name, Reason: reason})
			continue
		}
		kept[name] = v
	}

	createdBy := opts.CreatedBy
	if createdBy == "" {
		createdBy = "achronyme"
	}
	tags := opts.Tags
	if tags == nil {
		tags = []string{}
	}
	res.Metadata = Metadata{
		ID:           uuid.NewString(),
		CreatedBy:    createdBy,
		CreatedAt:    time.Now().Unix(),
		Platform:     runtime.GOOS + ":" + runtime.GOARCH,
		NumBindings:  len(kept),
		Description:  opts.Description,
		Tags:         tags,
		BindingNames: slices.Sorted(maps.Keys(kept)),
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(Body{Metadata: res.Metadata, Bindings: kept}); err != nil {
		return nil, nil, fmt.Errorf("encode body: %w", err)
	}
	body := buf.Bytes()

	h := Header{Version: Version, Compression: CompressionNone}
	if opts.Compress {
		compressed, err := compress(body, opts.CompressionLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("compress body: %w", err)
		}
		body = compressed
		h.Flags |= flagCompressed
		h.Compression = CompressionZstd
	}

	head, _ := h.MarshalBinary()
	sum := checksum(body)
	out := make([]byte, 0, len(head)+len(body)+len(sum))
	out = append(out, head...)
	out = append(out, body...)
	out = append(out, sum[:]...)
	res.Size = len(out)
	return out, res, nil
}

// Save writes a snapshot to path through a temporary file and a rename, so
// readers never observe a partial file.
func Save(path string, bindings map[string]Value, opts SaveOptions) (*SaveResult, error) {
	if !opts.AllowOverwrite {
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("%w: %s (set allow_overwrite to replace it)", ErrExists, path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	data, res, err := Encode(bindings, opts)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, fmt.Errorf("rename snapshot: %w", err)
	}

	slog.Debug("saved snapshot", "path", path, "bindings", res.Metadata.NumBindings, "bytes", res.Size)
	return res, nil
}

// Decode parses snapshot bytes and applies the filter to the bindings.
func Decode(data []byte, opts LoadOptions) (*Body, error) {
	h, body, sum, err := split(data)
	if err != nil {
		return nil, err
	}
	if err := h.CheckVersion(opts.StrictVersion); err != nil {
		return nil, err
	}
	if opts.VerifyChecksum && checksum(body) != sum {
		return nil, ErrChecksumMismatch
	}

	b, err := decodeBody(h, body)
	if err != nil {
		return nil, err
	}
	for name := range b.Bindings {
		if !opts.Allows(name) {
			delete(b.Bindings, name)
		}
	}
	return b, nil
}

func decodeBody(h Header, body []byte) (*Body, error) {
	if h.Compressed() {
		var err error
		if body, err = decompress(body); err != nil {
			return nil, err
		}
	}
	var b Body
	if err := msgpack.Unmarshal(body, &b); err != nil {
		if errors.Is(err, ErrInvalidFormat) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: decode body: %v", ErrInvalidFormat, err)
	}
	if b.Bindings == nil {
		b.Bindings = map[string]Value{}
	}
	return &b, nil
}

// Load reads and decodes the snapshot at path.
func Load(path string, opts LoadOptions) (*Body, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b, err := Decode(data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Inspect returns the metadata of the snapshot at path without verifying
// its checksum.
func Inspect(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	meta, err := InspectBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return meta, nil
}

// InspectBytes is Inspect over snapshot bytes already in memory.
func InspectBytes(data []byte) (*Metadata, error) {
	h, body, _, err := split(data)
	if err != nil {
		return nil, err
	}
	b, err := decodeBody(h, body)
	if err != nil {
		return nil, err
	}
	return &b.Metadata, nil
}

// Verify checks the header and checksum of the snapshot bytes.
func Verify(data []byte) (Header, error) {
	h, body, sum, err := split(data)
	if err != nil {
		return h, err
	}
	if err := h.CheckVersion(false); err != nil {
		return h, err
	}
	if checksum(body) != sum {
		return h, ErrChecksumMismatch
	}
	return h, nil
}
