package cascade

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// commentsKey is the reserved top-level table holding item comments, keyed by
// item path. It is rejected as a node name to keep the namespace unambiguous.
const commentsKey = "comments"

// FileStrategy persists a node subtree to a single TOML, YAML or JSON file.
// Node subtrees map to nested tables, items to scalar keys; values without a
// native representation in the format go through the converter registry as
// strings. Saves are atomic (temp file, sync, rename).
type FileStrategy struct {
	path   string
	format string // "toml", "json", "yaml" or "" for auto-detection

	converters *Converters

	// Last parsed file contents, keyed by item path, serving LoadItem.
	snapshot map[string]any
	comments map[string]string
}

// NewFileStrategy creates a file strategy for the given path. The format is
// detected from the file extension, falling back to content sniffing; use
// SetFormat to pin it.
func NewFileStrategy(path string) *FileStrategy {
	return &FileStrategy{path: path}
}

// SetFormat pins the file format instead of auto-detecting it.
func (f *FileStrategy) SetFormat(format string) error {
	switch format {
	case "toml", "json", "yaml", "":
		f.format = format
		return nil
	default:
		return fmt.Errorf("unsupported file format %q", format)
	}
}

// Converters returns the strategy's override registry, which takes
// precedence over the global converter registry.
func (f *FileStrategy) Converters() *Converters {
	if f.converters == nil {
		f.converters = NewConverters()
	}
	return f.converters
}

// IsValidConfigurationName accepts bare-key names (letters, digits,
// underscores, dashes), excluding the reserved comments table.
func (f *FileStrategy) IsValidConfigurationName(name string) bool {
	return isBareKey(name) && name != commentsKey
}

// IsValidItemName accepts bare-key names.
func (f *FileStrategy) IsValidItemName(name string) bool {
	return isBareKey(name)
}

// SupportsType accepts any type with a string conversion, through the
// strategy overrides, the global registry, or the automatic paths.
func (f *FileStrategy) SupportsType(t reflect.Type) bool {
	return convertible(t, f.converters)
}

// SupportsComments reports true; comments persist in the reserved table.
func (f *FileStrategy) SupportsComments() bool { return true }

// IsAssignable applies the default policy: exact runtime type, no nil.
func (f *FileStrategy) IsAssignable(t reflect.Type, value any) bool {
	return DefaultAssignable(t, value)
}

// Load populates the node subtree from the file. Missing children and items
// are materialized; values stored as strings convert to the declared type of
// pre-existing items through the registry.
func (f *FileStrategy) Load(n *Node) error {
	parsed, err := f.parseFile()
	if err != nil {
		return err
	}

	f.snapshot = make(map[string]any)
	f.comments = make(map[string]string)
	if raw, ok := parsed[commentsKey].(map[string]any); ok {
		for path, text := range raw {
			f.comments[path] = fmt.Sprint(text)
		}
		delete(parsed, commentsKey)
	}

	return f.applyTree(n, parsed)
}

// LoadItem populates a single item from the last parsed file contents,
// parsing the file on first use. Best effort: an absent file or key leaves
// the item without a value.
func (f *FileStrategy) LoadItem(s Setting) error {
	if f.snapshot == nil {
		parsed, err := f.parseFile()
		if err != nil {
			if errors.Is(err, ErrStoreNotFound) {
				return nil
			}
			return err
		}
		f.snapshot = make(map[string]any)
		f.comments = make(map[string]string)
		if raw, ok := parsed[commentsKey].(map[string]any); ok {
			for path, text := range raw {
				f.comments[path] = fmt.Sprint(text)
			}
			delete(parsed, commentsKey)
		}
		flattenInto(f.snapshot, "/", parsed)
	}

	raw, ok := f.snapshot[s.Path()]
	if !ok {
		return nil
	}
	v, err := f.convertLoaded(raw, s.Type())
	if err != nil {
		return fmt.Errorf("item %q: %w", s.Path(), err)
	}
	if err := s.LoadValue(v); err != nil {
		return err
	}
	if text, ok := f.comments[s.Path()]; ok {
		s.LoadComment(text)
	}
	return nil
}

// Save persists the node subtree atomically in the configured format.
func (f *FileStrategy) Save(n *Node, flags SaveFlags) error {
	root := make(map[string]any)
	comments := make(map[string]string)
	if err := f.collect(n, root, comments, flags); err != nil {
		return err
	}
	if len(comments) > 0 {
		root[commentsKey] = comments
	}

	format := f.format
	if format == "" {
		format = detectFileFormat(f.path)
	}
	if format == "" {
		format = "toml"
	}

	var data []byte
	var err error
	switch format {
	case "toml":
		var buf bytes.Buffer
		if err = toml.NewEncoder(&buf).Encode(root); err == nil {
			data = buf.Bytes()
		}
	case "json":
		data, err = json.MarshalIndent(root, "", "  ")
	case "yaml":
		data, err = yaml.Marshal(root)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal configuration as %s: %w", format, err)
	}

	return atomicWriteFile(f.path, data)
}

// parseFile reads and parses the backing file into a nested map.
func (f *FileStrategy) parseFile() (map[string]any, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrStoreNotFound
		}
		return nil, fmt.Errorf("failed to read configuration file '%s': %w", f.path, err)
	}

	format := f.format
	if format == "" {
		format = detectFileFormat(f.path)
		if format == "" {
			format = detectFormatFromContent(data)
		}
	}

	parsed := make(map[string]any)
	switch format {
	case "toml":
		if err := toml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse TOML file '%s': %w", f.path, err)
		}
	case "json":
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber() // Preserve number precision
		if err := decoder.Decode(&parsed); err != nil {
			return nil, fmt.Errorf("failed to parse JSON file '%s': %w", f.path, err)
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse YAML file '%s': %w", f.path, err)
		}
	default:
		return nil, fmt.Errorf("unable to determine configuration format for file '%s'", f.path)
	}
	return parsed, nil
}

func (f *FileStrategy) applyTree(n *Node, data map[string]any) error {
	for key, raw := range data {
		if sub, ok := raw.(map[string]any); ok {
			child, err := n.LoadChild(key)
			if err != nil {
				return err
			}
			if err := f.applyTree(child, sub); err != nil {
				return err
			}
			continue
		}
		if err := f.applyItem(n, key, raw); err != nil {
			return err
		}
	}
	return nil
}

func (f *FileStrategy) applyItem(n *Node, name string, raw any) error {
	raw = normalizeScalar(raw)

	var s Setting
	if existing := findSetting(n, name); existing != nil {
		s = existing
	} else {
		created, err := n.LoadSetting(name, reflect.TypeOf(raw))
		if err != nil {
			return err
		}
		s = created
	}

	v, err := f.convertLoaded(raw, s.Type())
	if err != nil {
		return fmt.Errorf("item %q: %w", s.Path(), err)
	}
	if err := s.LoadValue(v); err != nil {
		return err
	}

	f.snapshot[s.Path()] = raw
	if text, ok := f.comments[s.Path()]; ok {
		s.LoadComment(text)
	}
	return nil
}

// convertLoaded coerces a parsed scalar into an item's declared type: exact
// match first, registry conversion for strings, then numeric widening.
func (f *FileStrategy) convertLoaded(raw any, t reflect.Type) (any, error) {
	raw = normalizeScalar(raw)
	if reflect.TypeOf(raw) == t {
		return raw, nil
	}
	if s, ok := raw.(string); ok {
		if conv, ok := converterFor(t, f.converters); ok {
			return conv.FromString(s)
		}
	}
	rv := reflect.ValueOf(raw)
	if isNumericKind(rv.Kind()) && isNumericKind(t.Kind()) && rv.Type().ConvertibleTo(t) {
		return rv.Convert(t).Interface(), nil
	}
	return nil, fmt.Errorf("cannot use stored %T as %s: %w", raw, t, ErrNotAssignable)
}

func (f *FileStrategy) collect(n *Node, out map[string]any, comments map[string]string, flags SaveFlags) error {
	for _, s := range n.SaveSettings() {
		v, ok := s.PersistentValue(flags)
		if !ok {
			continue
		}
		encoded, err := f.encodeValue(v)
		if err != nil {
			return fmt.Errorf("item %q: %w", s.Path(), err)
		}
		out[s.Name()] = encoded
		if text, ok := s.PersistentComment(); ok {
			comments[s.Path()] = text
		}
	}
	for _, c := range n.SaveChildren() {
		sub := make(map[string]any)
		if err := f.collect(c, sub, comments, flags); err != nil {
			return err
		}
		if len(sub) > 0 {
			out[c.Name()] = sub
		}
	}
	return nil
}

// encodeValue maps a value to something every format can marshal: native
// scalars and time.Time pass through, everything else goes through the
// converter registry as a string.
func (f *FileStrategy) encodeValue(v any) (any, error) {
	if _, ok := v.(time.Time); ok {
		return v, nil
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return v, nil
	}
	conv, ok := converterFor(reflect.TypeOf(v), f.converters)
	if !ok {
		return nil, ErrUnsupportedType
	}
	return conv.ToString(v)
}

func findSetting(n *Node, name string) Setting {
	for _, s := range n.SaveSettings() {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// normalizeScalar maps parser-specific number types onto int64/float64.
func normalizeScalar(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case int:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// flattenInto records every scalar of a nested map under its item path.
func flattenInto(flat map[string]any, prefix string, data map[string]any) {
	for key, raw := range data {
		path := joinPath(prefix, key)
		if sub, ok := raw.(map[string]any); ok {
			flattenInto(flat, path, sub)
			continue
		}
		flat[path] = normalizeScalar(raw)
	}
}

// isBareKey checks a name against the TOML bare-key alphabet.
func isBareKey(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !(isLetter || isDigit || r == '_' || r == '-') {
			return false
		}
	}
	return true
}

// detectFileFormat determines format from the file extension.
func detectFileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".tml":
		return "toml"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return ""
	}
}

// detectFormatFromContent attempts to detect the format by parsing into a
// table. JSON is strictest and goes first; YAML accepts nearly any text and
// must come last.
func detectFormatFromContent(data []byte) string {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err == nil {
		return "json"
	}
	if err := toml.Unmarshal(data, &m); err == nil {
		return "toml"
	}
	if err := yaml.Unmarshal(data, &m); err == nil {
		return "yaml"
	}
	return ""
}

// atomicWriteFile writes data through a temp file in the target directory,
// syncing and renaming so readers never observe a partial file.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	tempPath := tempFile.Name()
	defer os.Remove(tempPath) // Clean up on any error

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}
