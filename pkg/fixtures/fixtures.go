// Package fixtures loads users, groups, grants and items from YAML.
//
//	groups:
//	  - name: bar
//	    visible: [FOO]
//	users:
//	  - id: 1
//	    username: bar
//	    groups: [bar]
//	    permissions: [view_itemlock, add_itemlock, change_itemlock, view_item]
//	items:
//	  - id: 3
//	    type: FOO
package fixtures

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/doodlesbykumbi/ws-lock/pkg/model"
)

// Fixture is a complete seed data set
type Fixture struct {
	Groups []Group `yaml:"groups"`
	Users  []User  `yaml:"users"`
	Items  []Item  `yaml:"items"`
}

type Group struct {
	Name        string           `yaml:"name"`
	Visible     []model.ItemType `yaml:"visible"`
	Permissions []string         `yaml:"permissions"`
}

type User struct {
	ID          int64    `yaml:"id"`
	Username    string   `yaml:"username"`
	Active      *bool    `yaml:"active"`
	Superuser   bool     `yaml:"superuser"`
	Groups      []string `yaml:"groups"`
	Permissions []string `yaml:"permissions"`
}

// IsActive defaults to true when active is not set.
func (u User) IsActive() bool {
	return u.Active == nil || *u.Active
}

type Item struct {
	ID   int64          `yaml:"id"`
	Type model.ItemType `yaml:"type"`
}

// Load reads and validates a fixture file
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates fixture YAML
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks ids are positive and unique and that users only
// reference declared groups.
func (f *Fixture) Validate() error {
	groups := make(map[string]bool, len(f.Groups))
	for _, g := range f.Groups {
		if g.Name == "" {
			return fmt.Errorf("group name is required")
		}
		if groups[g.Name] {
			return fmt.Errorf("duplicate group %q", g.Name)
		}
		groups[g.Name] = true
	}

	users := make(map[int64]bool, len(f.Users))
	for _, u := range f.Users {
		if u.ID <= 0 {
			return fmt.Errorf("user %q: id must be positive", u.Username)
		}
		if u.Username == "" {
			return fmt.Errorf("user %d: username is required", u.ID)
		}
		if users[u.ID] {
			return fmt.Errorf("duplicate user id %d", u.ID)
		}
		users[u.ID] = true
		for _, g := range u.Groups {
			if !groups[g] {
				return fmt.Errorf("user %q: unknown group %q", u.Username, g)
			}
		}
	}

	items := make(map[int64]bool, len(f.Items))
	for _, it := range f.Items {
		if it.ID <= 0 {
			return fmt.Errorf("item id must be positive, got %d", it.ID)
		}
		if !it.Type.IsAItemType() {
			return fmt.Errorf("item %d: invalid type %d", it.ID, it.Type)
		}
		if items[it.ID] {
			return fmt.Errorf("duplicate item id %d", it.ID)
		}
		items[it.ID] = true
	}
	return nil
}

// Permissions returns every permission codename the fixture mentions, in
// order of first appearance.
func (f *Fixture) Permissions() []string {
	seen := map[string]bool{}
	var out []string
	add := func(perms []string) {
		for _, p := range perms {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	for _, g := range f.Groups {
		add(g.Permissions)
	}
	for _, u := range f.Users {
		add(u.Permissions)
	}
	return out
}
