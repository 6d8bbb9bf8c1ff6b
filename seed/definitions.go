package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/secnex/admin-bootstrap/models"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Definitions struct {
	Trees  []TreeDefinition `yaml:"trees"`
	Roles  []NamedEntry     `yaml:"roles"`
	Groups []NamedEntry     `yaml:"groups"`
	Admin  AdminDefinition  `yaml:"admin"`
}

// TreeDefinition describes one tree hung below the root of Type. Marker is
// the node name whose presence means the tree was already seeded.
type TreeDefinition struct {
	Type   models.TreeType  `yaml:"type"`
	Marker string           `yaml:"marker"`
	Nodes  []NodeDefinition `yaml:"nodes"`
}

type NodeDefinition struct {
	Name     string           `yaml:"name"`
	CSS      string           `yaml:"css"`
	URL      string           `yaml:"url"`
	Index    *int             `yaml:"index"`
	Children []NodeDefinition `yaml:"children"`
}

type NamedEntry struct {
	Name string `yaml:"name"`
}

type AdminDefinition struct {
	LoginName string `yaml:"login_name"`
	UserName  string `yaml:"user_name"`
	Password  string `yaml:"password"`
	Email     string `yaml:"email"`
	Role      string `yaml:"role"`
	Group     string `yaml:"group"`
}

// Defaults returns the definitions compiled into the binary.
func Defaults() (*Definitions, error) {
	return Parse(defaultsYAML)
}

// Load reads definitions from name inside fsys.
func Load(fsys fs.FS, name string) (*Definitions, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read seed definitions %s: %w", name, err)
	}
	defs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return defs, nil
}

func Parse(data []byte) (*Definitions, error) {
	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse seed definitions: %w", err)
	}
	if err := defs.Validate(); err != nil {
		return nil, err
	}
	return &defs, nil
}

func (d *Definitions) Validate() error {
	var errs []error

	for i, tree := range d.Trees {
		if _, err := models.ParseTreeType(string(tree.Type)); err != nil {
			errs = append(errs, fmt.Errorf("tree %d: %w", i, err))
			continue
		}
		if strings.TrimSpace(tree.Marker) == "" {
			errs = append(errs, fmt.Errorf("tree %s: marker is required", tree.Type))
			continue
		}
		if !containsName(tree.Nodes, tree.Marker) {
			errs = append(errs, fmt.Errorf("tree %s: marker %q is not one of its nodes", tree.Type, tree.Marker))
		}
		if err := validateNodes(tree.Nodes); err != nil {
			errs = append(errs, fmt.Errorf("tree %s: %w", tree.Type, err))
		}
	}

	roles := names(d.Roles)
	groups := names(d.Groups)
	if len(roles) != len(d.Roles) {
		errs = append(errs, errors.New("role names must be unique and non-empty"))
	}
	if len(groups) != len(d.Groups) {
		errs = append(errs, errors.New("group names must be unique and non-empty"))
	}

	admin := d.Admin
	if strings.TrimSpace(admin.LoginName) == "" {
		errs = append(errs, errors.New("admin login_name is required"))
	}
	if admin.Password == "" {
		errs = append(errs, errors.New("admin password is required"))
	}
	if admin.Role != "" && !roles[admin.Role] {
		errs = append(errs, fmt.Errorf("admin role %q is not defined", admin.Role))
	}
	if admin.Group != "" && !groups[admin.Group] {
		errs = append(errs, fmt.Errorf("admin group %q is not defined", admin.Group))
	}

	return errors.Join(errs...)
}

// NodeCount returns the number of nodes the tree definition creates.
func (t TreeDefinition) NodeCount() int {
	return countNodes(t.Nodes)
}

func countNodes(nodes []NodeDefinition) int {
	n := len(nodes)
	for _, node := range nodes {
		n += countNodes(node.Children)
	}
	return n
}

func validateNodes(nodes []NodeDefinition) error {
	for _, node := range nodes {
		if strings.TrimSpace(node.Name) == "" {
			return errors.New("node name is required")
		}
		if node.Index != nil && *node.Index < 0 {
			return fmt.Errorf("node %q: index must not be negative", node.Name)
		}
		if err := validateNodes(node.Children); err != nil {
			return err
		}
	}
	return nil
}

func containsName(nodes []NodeDefinition, name string) bool {
	for _, node := range nodes {
		if node.Name == name || containsName(node.Children, name) {
			return true
		}
	}
	return false
}

func names(entries []NamedEntry) map[string]bool {
	set := make(map[string]bool, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.Name) != "" {
			set[e.Name] = true
		}
	}
	return set
}
