// Package format holds the text plugins that convert frames to and from
// CSV, JSON, YAML and Arrow IPC streams. Each plugin is both a
// dataframe.Formatter and a dataframe.Parser.
package format

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/spektr-org/tabula/dataframe"
	tberrors "github.com/spektr-org/tabula/errors"
)

// Plugin renders and parses one text format.
type Plugin interface {
	dataframe.Formatter
	dataframe.Parser
}

// ============================================================================
// REGISTRY — Name and extension lookup for the CLI
// ============================================================================

var registry = map[string]func() Plugin{
	"csv":   func() Plugin { return CSV{} },
	"tsv":   func() Plugin { return CSV{Comma: '\t'} },
	"json":  func() Plugin { return JSON{UseInts: true} },
	"yaml":  func() Plugin { return YAML{} },
	"yml":   func() Plugin { return YAML{} },
	"arrow": func() Plugin { return Arrow{} },
	"ipc":   func() Plugin { return Arrow{} },
}

// Names lists the registered format names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName returns the plugin registered under name (case-insensitive).
func ByName(name string) (Plugin, error) {
	ctor, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, tberrors.InvalidArgument("format", "unknown format "+name+" (want one of "+strings.Join(Names(), ", ")+")")
	}
	return ctor(), nil
}

// ForPath picks a plugin from a file extension. A trailing ".sz" is
// ignored so snappy-wrapped files resolve to their inner format.
func ForPath(path string) (Plugin, error) {
	path = strings.TrimSuffix(path, ".sz")
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, tberrors.InvalidArgument("format", "cannot infer format from "+path)
	}
	return ByName(ext)
}
