package config

import (
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

var durationKeys = map[string]bool{
	"timeout":  true,
	"interval": true,
	"ttl":      true,
}

// Marshal renders cfg as YAML that Load reads back. Durations are written in
// their string form ("30s") rather than as nanoseconds.
func Marshal(cfg *Config) ([]byte, error) {
	var node yaml.Node
	if err := node.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	if err := humanizeDurations(&node); err != nil {
		return nil, err
	}
	return yaml.Marshal(&node)
}

func humanizeDurations(n *yaml.Node) error {
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			if durationKeys[key.Value] && val.Kind == yaml.ScalarNode && val.ShortTag() == "!!int" {
				ns, err := strconv.ParseInt(val.Value, 10, 64)
				if err != nil {
					return fmt.Errorf("config key %s: %w", key.Value, err)
				}
				val.Value = time.Duration(ns).String()
				val.Tag = "!!str"
			}
		}
	}
	for _, child := range n.Content {
		if err := humanizeDurations(child); err != nil {
			return err
		}
	}
	return nil
}
