// Package catalog lists the voices users can pick and the plans admins sell.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Voice struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type Plan struct {
	Name         string `yaml:"name"`
	Credits      int    `yaml:"credits"`
	Price        string `yaml:"price"`
	ValidityDays int    `yaml:"validity_days"`
}

type Catalog struct {
	Voices []Voice `yaml:"voices"`
	Plans  []Plan  `yaml:"plans"`
}

func Default() *Catalog {
	return &Catalog{
		Voices: []Voice{
			{ID: "a5e5bbe15fb6465fb113c1bab4de8b2e", Name: "Marie"},
			{ID: "89caeb03934840e791f7d13e9c03b6ef", Name: "Daisy"},
			{ID: "e3fbe8fdb0ea40d8a15d527ab854b8af", Name: "Ayesha"},
			{ID: "b8daf8f8981a484abb8cc9520641b5dc", Name: "Anna"},
			{ID: "29913697e157485c941c737314c27819", Name: "Ruby"},
			{ID: "d75c78da679a4d8480e4bcfb6c60bdc6", Name: "Nora"},
			{ID: "d39b35734b49454784d2dbcc17cd45b9", Name: "Denica"},
			{ID: "c5e4c4c57a084a0f9b5b277d36546ef0", Name: "Even"},
		},
		Plans: []Plan{
			{Name: "Starter", Credits: 50, Price: "$5", ValidityDays: 30},
			{Name: "Pro", Credits: 200, Price: "$15", ValidityDays: 30},
			{Name: "Unlimited-Day", Credits: 400, Price: "$30", ValidityDays: 30},
		},
	}
}

// Load reads a YAML catalog. An empty path yields Default. A section left
// out of the file keeps its default entries.
func Load(path string) (*Catalog, error) {
	def := Default()
	if path == "" {
		return def, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if len(c.Voices) == 0 {
		c.Voices = def.Voices
	}
	if len(c.Plans) == 0 {
		c.Plans = def.Plans
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	seen := make(map[string]struct{}, len(c.Voices))
	for i, v := range c.Voices {
		if v.ID == "" || v.Name == "" {
			return fmt.Errorf("voice %d needs both id and name", i)
		}
		if _, dup := seen[v.ID]; dup {
			return fmt.Errorf("duplicate voice id %s", v.ID)
		}
		seen[v.ID] = struct{}{}
	}
	return nil
}

// VoiceName resolves id to its display name, falling back to the id itself.
func (c *Catalog) VoiceName(id string) string {
	for _, v := range c.Voices {
		if v.ID == id {
			return v.Name
		}
	}
	return id
}

func (c *Catalog) HasVoice(id string) bool {
	for _, v := range c.Voices {
		if v.ID == id {
			return true
		}
	}
	return false
}
