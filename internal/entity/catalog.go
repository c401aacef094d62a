package entity

import (
	"fmt"
	"sort"
	"strings"
)

type CatalogDevice struct {
	ID               string   `json:"id" yaml:"id"`
	Name             string   `json:"name" yaml:"name"`
	Room             string   `json:"room" yaml:"room"`
	Type             string   `json:"type" yaml:"type"`
	SupportedActions []string `json:"supportedActions" yaml:"supportedActions"`
}

func (d CatalogDevice) Supports(action Action) bool {
	for _, a := range d.SupportedActions {
		if a == string(action) {
			return true
		}
	}
	return false
}

type CatalogScene struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

type CatalogShortcut struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// Catalog is a value snapshot. Copy returns a deep copy safe to hand out.
type Catalog struct {
	Devices   []CatalogDevice   `json:"devices"`
	Scenes    []CatalogScene    `json:"scenes"`
	Shortcuts []CatalogShortcut `json:"shortcuts"`
}

func (c Catalog) Copy() Catalog {
	out := Catalog{
		Devices:   make([]CatalogDevice, len(c.Devices)),
		Scenes:    append([]CatalogScene(nil), c.Scenes...),
		Shortcuts: append([]CatalogShortcut(nil), c.Shortcuts...),
	}
	for i, d := range c.Devices {
		d.SupportedActions = append([]string(nil), d.SupportedActions...)
		out.Devices[i] = d
	}
	return out
}

func (c Catalog) IsEmpty() bool {
	return len(c.Devices) == 0 && len(c.Scenes) == 0 && len(c.Shortcuts) == 0
}

func (c Catalog) FindDevice(name string) (CatalogDevice, bool) {
	for _, d := range c.Devices {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return CatalogDevice{}, false
}

func (c Catalog) HasScene(name string) bool {
	for _, s := range c.Scenes {
		if strings.EqualFold(s.Name, name) {
			return true
		}
	}
	return false
}

func (c Catalog) HasShortcut(name string) bool {
	for _, s := range c.Shortcuts {
		if strings.EqualFold(s.Name, name) {
			return true
		}
	}
	return false
}

// PromptDescription renders the catalog for the classification prompt,
// devices grouped by room.
func (c Catalog) PromptDescription() string {
	var sb strings.Builder

	if len(c.Devices) > 0 {
		byRoom := map[string][]CatalogDevice{}
		for _, d := range c.Devices {
			room := d.Room
			if room == "" {
				room = "Other"
			}
			byRoom[room] = append(byRoom[room], d)
		}
		rooms := make([]string, 0, len(byRoom))
		for r := range byRoom {
			rooms = append(rooms, r)
		}
		sort.Strings(rooms)

		sb.WriteString("Devices:\n")
		for _, room := range rooms {
			fmt.Fprintf(&sb, "  %s:\n", room)
			for _, d := range byRoom[room] {
				fmt.Fprintf(&sb, "    - %s (%s) [%s]\n", d.Name, d.Type, strings.Join(d.SupportedActions, ", "))
			}
		}
	}

	if len(c.Scenes) > 0 {
		sb.WriteString("Scenes:\n")
		for _, s := range c.Scenes {
			fmt.Fprintf(&sb, "  - %s\n", s.Name)
		}
	}

	if len(c.Shortcuts) > 0 {
		sb.WriteString("Shortcuts:\n")
		for _, s := range c.Shortcuts {
			if s.Description != "" {
				fmt.Fprintf(&sb, "  - %s: %s\n", s.Name, s.Description)
			} else {
				fmt.Fprintf(&sb, "  - %s\n", s.Name)
			}
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}
