package secrets

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
)

// ErrInvalidConfig is returned when rules or allow list entries do not compile.
var ErrInvalidConfig = errors.New("invalid secrets config")

// Config configures the scrubber.
type Config struct {
	Enabled bool `koanf:"enabled"`

	// Gitleaks adds the gitleaks default rule catalogue to the local rules.
	Gitleaks bool `koanf:"gitleaks"`

	RedactionString string `koanf:"redaction_string"`

	// AllowList holds regexps; matches of any entry are never redacted.
	AllowList []string `koanf:"allow_list"`

	// AllowListFile is an optional TOML file with an [allowlist] regexes array,
	// merged into AllowList by Validate. A missing file is ignored.
	AllowListFile string `koanf:"allow_list_file"`

	Rules []Rule `koanf:"rules"`

	compiledRules     []*compiledRule
	compiledAllowList []*regexp.Regexp
}

// Rule is a local detection rule.
type Rule struct {
	ID          string `koanf:"id"`
	Description string `koanf:"description"`
	Pattern     string `koanf:"pattern"`
	Severity    string `koanf:"severity"`
}

type compiledRule struct {
	Rule
	pattern *regexp.Regexp
}

// DefaultConfig enables local rules and gitleaks with the standard marker.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		Gitleaks:        true,
		RedactionString: "[REDACTED]",
		Rules:           DefaultRules(),
		AllowList:       []string{},
	}
}

// Validate loads the allow list file and compiles rules and allow list.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.RedactionString == "" {
		c.RedactionString = "[REDACTED]"
	}

	c.compiledRules = make([]*compiledRule, 0, len(c.Rules))
	for i, rule := range c.Rules {
		if rule.ID == "" {
			return fmt.Errorf("%w: rule %d: id is required", ErrInvalidConfig, i)
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil || rule.Pattern == "" {
			return fmt.Errorf("%w: rule %s: bad pattern %q", ErrInvalidConfig, rule.ID, rule.Pattern)
		}
		c.compiledRules = append(c.compiledRules, &compiledRule{Rule: rule, pattern: re})
	}

	allow := append([]string{}, c.AllowList...)
	if c.AllowListFile != "" {
		extra, err := loadAllowListFile(c.AllowListFile)
		if err != nil {
			return err
		}
		allow = append(allow, extra...)
	}
	c.compiledAllowList = make([]*regexp.Regexp, 0, len(allow))
	for _, pattern := range allow {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("%w: allow list pattern %q: %v", ErrInvalidConfig, pattern, err)
		}
		c.compiledAllowList = append(c.compiledAllowList, re)
	}
	return nil
}

// loadAllowListFile reads the gitleaks-style [allowlist] table.
func loadAllowListFile(path string) ([]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	var file struct {
		Allowlist struct {
			Regexes []string `toml:"regexes"`
		} `toml:"allowlist"`
	}
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return file.Allowlist.Regexes, nil
}
