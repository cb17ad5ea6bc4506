package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/legal-sla-monitor/internal/core/domain"
	"github.com/kirillkom/legal-sla-monitor/internal/core/sla"
)

// LoadRules reads the SLA rules file. An empty path or a missing file yields
// the built-in defaults; fields absent from the file keep their defaults.
func LoadRules(path string) (sla.Rules, error) {
	if path == "" {
		return sla.DefaultRules(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return sla.DefaultRules(), nil
		}
		return sla.Rules{}, fmt.Errorf("read sla rules: %w", err)
	}
	return ParseRules(raw)
}

func ParseRules(raw []byte) (sla.Rules, error) {
	var rules sla.Rules
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return sla.Rules{}, domain.WrapError(domain.ErrInvalidInput, "parse sla rules", err)
	}
	rules = rules.WithDefaults()
	if err := rules.Validate(); err != nil {
		return sla.Rules{}, err
	}
	return rules, nil
}
