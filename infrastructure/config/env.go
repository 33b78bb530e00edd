package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	domainconfig "github.com/felixgeelhaar/agentstep/domain/config"
)

// envPattern matches ${VAR}, ${VAR:-default}, ${VAR:?message} and $VAR.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::([-?])([^}]*))?\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// envExpander expands environment references in configuration text.
type envExpander struct {
	// strict reports unset variables referenced without a default.
	strict bool
	lookup func(string) (string, bool)
}

func newEnvExpander(strict bool) *envExpander {
	return &envExpander{strict: strict, lookup: os.LookupEnv}
}

// Expand replaces every environment reference in input.
//
// ${VAR:-default} falls back when VAR is unset or empty. ${VAR:?message}
// fails when VAR is unset or empty. Plain references expand to the empty
// string unless the expander is strict.
func (e *envExpander) Expand(input string) (string, error) {
	var missing []string

	result := envPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envPattern.FindStringSubmatch(match)
		name, op, arg := groups[1], groups[2], groups[3]
		if name == "" {
			name = groups[4]
		}

		value, ok := e.lookup(name)
		switch op {
		case "-":
			if !ok || value == "" {
				return arg
			}
		case "?":
			if !ok || value == "" {
				missing = append(missing, fmt.Sprintf("%s: %s", name, arg))
				return match
			}
		default:
			if !ok && e.strict {
				missing = append(missing, name)
			}
		}
		return value
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", domainconfig.ErrMissingEnvVar, strings.Join(missing, ", "))
	}
	return result, nil
}

// ExpandEnv expands environment references, leaving unset variables empty.
func ExpandEnv(input string) string {
	result, _ := newEnvExpander(false).Expand(input)
	return result
}

// ExpandEnvStrict expands environment references and fails on unset variables.
func ExpandEnvStrict(input string) (string, error) {
	return newEnvExpander(true).Expand(input)
}
