package policy

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/console-access/internal/access"
	"github.com/spec-kit/console-access/internal/domain"
)

//go:embed console.yaml
var consolePolicy []byte

// Format identifies a policy document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Document is the on-disk form of a policy.
type Document struct {
	Roles map[domain.RoleID][]string `yaml:"roles" json:"roles"`
	Menu  []domain.RouteEntry         `yaml:"menu" json:"menu"`
}

// Policy is a compiled document: the route table and the menu it governs.
type Policy struct {
	Table *access.PolicyTable
	Menu  []domain.RouteEntry
}

// Source yields the current authoritative policy. Sessions copy what they
// need at sign-in, so a Source is consulted once per sign-in, not per request.
type Source interface {
	Load(ctx context.Context) (*Policy, error)
}

// MenuSource yields the current navigation tree. It is read per menu
// request, so it follows the same file or store the Source does.
type MenuSource interface {
	Menu(ctx context.Context) ([]domain.RouteEntry, error)
}

// Parse decodes a policy document.
func Parse(data []byte, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml policy: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode json policy: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported policy format %q", format)
	}
	return &doc, nil
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("cannot infer policy format from %q", path)
}

// Compile validates the document and builds its table.
func (d *Document) Compile() (*Policy, error) {
	table, err := access.NewPolicyTable(d.Roles)
	if err != nil {
		return nil, err
	}
	if err := validateMenu(d.Menu); err != nil {
		return nil, err
	}
	return &Policy{Table: table, Menu: d.Menu}, nil
}

func validateMenu(entries []domain.RouteEntry) error {
	seen := make(map[string]struct{})
	var errs []error
	var walk func([]domain.RouteEntry)
	walk = func(entries []domain.RouteEntry) {
		for _, entry := range entries {
			if entry.ID == "" {
				errs = append(errs, fmt.Errorf("menu entry %q has no id", entry.Title))
			} else if _, dup := seen[entry.ID]; dup {
				errs = append(errs, fmt.Errorf("menu entry id %q is repeated", entry.ID))
			}
			seen[entry.ID] = struct{}{}
			if entry.Path != "" {
				if _, ok := access.NormalizePath(entry.Path); !ok || !strings.HasPrefix(entry.Path, "/") {
					errs = append(errs, fmt.Errorf("menu entry %q has invalid path %q", entry.ID, entry.Path))
				}
			}
			if entry.Path == "" && len(entry.Children) == 0 {
				errs = append(errs, fmt.Errorf("menu entry %q has neither path nor children", entry.ID))
			}
			walk(entry.Children)
		}
	}
	walk(entries)
	return errors.Join(errs...)
}

// Default returns the console policy compiled into the binary.
func Default() (*Policy, error) {
	doc, err := DefaultDocument()
	if err != nil {
		return nil, err
	}
	return doc.Compile()
}

// DefaultDocument returns the embedded console policy document.
func DefaultDocument() (*Document, error) {
	return Parse(consolePolicy, FormatYAML)
}

// ReadFile reads and decodes a policy document without compiling it.
func ReadFile(path string) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return Parse(data, format)
}

// LoadFile reads and compiles a policy file.
func LoadFile(path string) (*Policy, error) {
	doc, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	policy, err := doc.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", path, err)
	}
	return policy, nil
}

// FileSource serves a policy file, or the embedded console policy when no
// path is configured. The file is re-read on every Load so edits apply to
// the next sign-in.
type FileSource struct {
	path string
}

// NewFileSource returns a source for path. An empty path selects the default policy.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load implements Source.
func (s *FileSource) Load(_ context.Context) (*Policy, error) {
	if s.path == "" {
		return Default()
	}
	return LoadFile(s.path)
}

// Menu implements MenuSource. A file that no longer compiles is an error
// rather than a silently stale menu.
func (s *FileSource) Menu(ctx context.Context) ([]domain.RouteEntry, error) {
	p, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return p.Menu, nil
}
