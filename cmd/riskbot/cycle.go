package main

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"trading-risk-engine/internal/types"
)

// cycleFile is what the strategy layer drops for the next evaluation: one
// signal bundle per symbol plus the current holdings.
type cycleFile struct {
	Bundles   map[string]types.SignalBundle `yaml:"bundles"`
	Positions types.PositionSnapshot        `yaml:"positions"`
}

func loadCycle(path string) (*cycleFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c cycleFile
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse cycle file %s: %w", path, err)
	}
	if c.Positions == nil {
		c.Positions = types.PositionSnapshot{}
	}
	return &c, nil
}

func (c *cycleFile) symbols() []string {
	out := make([]string, 0, len(c.Bundles))
	for s := range c.Bundles {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
