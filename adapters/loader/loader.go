// Package loader reads rule definitions from JSON config files.
package loader

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
)

// FileLoader implements ports.RuleLoader over the local filesystem. A
// missing or malformed file is reported as warnings, not an error: the
// caller gets whatever rules could be read and decides how to proceed.
type FileLoader struct{}

// NewFileLoader creates a filesystem rule loader
func NewFileLoader() *FileLoader {
	return &FileLoader{}
}

// ruleFile is the accepted document shape: either a bare array of rule
// definitions or an object with a "rules" key
type ruleFile struct {
	Rules []map[string]interface{} `json:"rules"`
}

// LoadRules reads rule definitions from a JSON file. The two expected
// failure shapes - file absent, document unparseable - come back as
// warnings with an empty rule list. The error return is reserved for
// genuinely unexpected conditions like permission failures.
func (l *FileLoader) LoadRules(path string) ([]map[string]interface{}, []string, error) {
	if path == "" {
		return nil, []string{"no rules file configured"}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("[RuleLoader] rules file %s not found", path)
			return nil, []string{fmt.Sprintf("rules file %s not found", path)}, nil
		}
		return nil, nil, fmt.Errorf("read rules file %s: %w", path, err)
	}

	// try the object form first, then the bare-array form
	var doc ruleFile
	if err := json.Unmarshal(data, &doc); err == nil && doc.Rules != nil {
		return l.validateShapes(path, doc.Rules)
	}
	var bare []map[string]interface{}
	if err := json.Unmarshal(data, &bare); err == nil {
		return l.validateShapes(path, bare)
	}

	log.Printf("[RuleLoader] rules file %s is not valid JSON", path)
	return nil, []string{fmt.Sprintf("rules file %s is malformed: not a JSON rule list", path)}, nil
}

// validateShapes filters out entries that are not rule-shaped, warning per
// dropped entry so a partial load is visible to the caller
func (l *FileLoader) validateShapes(path string, raw []map[string]interface{}) ([]map[string]interface{}, []string, error) {
	var rules []map[string]interface{}
	var warnings []string
	for i, entry := range raw {
		if entry == nil {
			warnings = append(warnings, fmt.Sprintf("%s: entry %d is null, skipped", path, i))
			continue
		}
		rules = append(rules, entry)
	}
	log.Printf("[RuleLoader] loaded %d rule definitions from %s (%d warnings)", len(rules), path, len(warnings))
	return rules, warnings, nil
}
