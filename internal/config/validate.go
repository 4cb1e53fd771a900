package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// ConfigurationError lists every problem found in the static configuration.
// It is fatal: startup must abort when one is returned.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid configuration: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid configuration: %d problems: %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

func (e *ConfigurationError) add(format string, args ...interface{}) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

var validate = validator.New()

// Validate checks the configuration and returns a *ConfigurationError if
// anything is wrong.
func (c *Config) Validate() error {
	cfgErr := &ConfigurationError{}

	switch c.Database.InitMode {
	case "", InitModeReset, InitModeResume:
	default:
		cfgErr.add("database.init_mode %q must be %q or %q", c.Database.InitMode, InitModeReset, InitModeResume)
	}

	if err := c.Review.validate(); err != nil {
		var reviewErr *ConfigurationError
		if errors.As(err, &reviewErr) {
			cfgErr.Problems = append(cfgErr.Problems, reviewErr.Problems...)
		} else {
			return err
		}
	}

	if len(cfgErr.Problems) > 0 {
		return cfgErr
	}
	return nil
}

// Validate checks the roster, metric list and overrides on their own.
func (r *ReviewConfig) Validate() error {
	return r.validate()
}

func (r *ReviewConfig) validate() error {
	cfgErr := &ConfigurationError{}

	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			cfgErr.add("review.%s failed %q", strings.TrimPrefix(fe.Namespace(), "ReviewConfig."), fe.Tag())
		}
	}

	names := make(map[string]bool, len(r.Roster))
	usernames := make(map[string]bool, len(r.Roster))
	for _, entry := range r.Roster {
		if entry.Name != "" {
			if names[entry.Name] {
				cfgErr.add("roster name %q is not unique", entry.Name)
			}
			names[entry.Name] = true
		}
		if entry.Username != "" {
			if usernames[entry.Username] {
				cfgErr.add("roster username %q is not unique", entry.Username)
			}
			usernames[entry.Username] = true
		}
	}

	reviewers := make([]string, 0, len(r.Overrides))
	for reviewer := range r.Overrides {
		reviewers = append(reviewers, reviewer)
	}
	sort.Strings(reviewers)
	for _, reviewer := range reviewers {
		if !usernames[reviewer] {
			cfgErr.add("override reviewer %q doesn't match any roster username", reviewer)
		}
		ratees := r.Overrides[reviewer]
		if len(ratees) == 0 {
			cfgErr.add("override reviewer %q has no assigned ratees", reviewer)
		}
		seen := make(map[string]bool, len(ratees))
		for _, ratee := range ratees {
			if !usernames[ratee] {
				cfgErr.add("override reviewer %q has unmatched assigned name %q", reviewer, ratee)
			}
			if seen[ratee] {
				cfgErr.add("override reviewer %q lists %q more than once", reviewer, ratee)
			}
			seen[ratee] = true
		}
	}

	metricNames := make(map[string]bool, len(r.Metrics))
	keys := make(map[string]string, len(r.Metrics))
	for _, metric := range r.Metrics {
		if metric.Name == "" {
			continue
		}
		if metricNames[metric.Name] {
			cfgErr.add("metric %q is not unique", metric.Name)
			continue
		}
		metricNames[metric.Name] = true

		key := MetricKey(metric.Name)
		if key == "" {
			cfgErr.add("metric %q has no letters to derive a key from", metric.Name)
			continue
		}
		if other, ok := keys[key]; ok {
			cfgErr.add("metrics %q and %q share the key %q", other, metric.Name, key)
			continue
		}
		keys[key] = metric.Name
	}

	if len(cfgErr.Problems) > 0 {
		return cfgErr
	}
	return nil
}

// MetricKey derives the short identifier of a metric from its display text:
// '&' reads as "and", '/' and '-' separate words, and the lower-cased first
// letter of every word is kept. Leading symbols such as bullets are dropped.
func MetricKey(text string) string {
	text = strings.NewReplacer("&", "and", "/", " ", "-", " ").Replace(text)

	var b strings.Builder
	for _, word := range strings.Split(text, " ") {
		if word == "" {
			continue
		}
		first := []rune(word)[0]
		if unicode.IsLetter(first) || unicode.IsDigit(first) {
			b.WriteRune(unicode.ToLower(first))
		}
	}
	return b.String()
}
