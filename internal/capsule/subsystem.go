package capsule

import (
	"regexp"
	"strings"
)

// subsystemRule maps a path pattern to a subsystem label.
type subsystemRule struct {
	label   string
	pattern *regexp.Regexp
}

// subsystemRules is evaluated in order; the first matching rule wins.
// The ordering is significant: a path under both "models" and "migrations"
// directories must resolve to "Database", not "ML Pipeline".
var subsystemRules = []subsystemRule{
	{"Frontend", regexp.MustCompile(`(?i)/(components|pages|app|ui|views)/`)},
	{"Backend API", regexp.MustCompile(`(?i)/(api|routes|controllers|handlers)/`)},
	{"Database", regexp.MustCompile(`(?i)/(models|schema|migrations|db)/`)},
	{"Auth", regexp.MustCompile(`(?i)/(auth|login|session|security)/`)},
	{"Tests", regexp.MustCompile(`(?i)/(tests|__tests__|spec)/`)},
	{"Config", regexp.MustCompile(`(?i)/(config|settings|\.env)`)},
	{"ML Pipeline", regexp.MustCompile(`(?i)/(models|ml|ai|prediction)/`)},
}

// InferSubsystem matches artifact paths against the ordered rule table and
// returns the first matching label, or nil when no rule matches or the
// artifact list is empty.
func InferSubsystem(artifacts []string) *string {
	if len(artifacts) == 0 {
		return nil
	}
	for _, rule := range subsystemRules {
		for _, a := range artifacts {
			if rule.pattern.MatchString(a) {
				label := rule.label
				return &label
			}
		}
	}
	return nil
}

// ExtractArtifacts collects object identifiers from file-source events that
// look like paths (contain a separator or a dot), deduplicated with first
// occurrence order preserved.
func ExtractArtifacts(events []RawEvent) []string {
	seen := make(map[string]bool)
	artifacts := make([]string, 0)
	for _, e := range events {
		if e.Source != SourceFile {
			continue
		}
		obj := e.Object
		if !strings.Contains(obj, "/") && !strings.Contains(obj, ".") {
			continue
		}
		if seen[obj] {
			continue
		}
		seen[obj] = true
		artifacts = append(artifacts, obj)
	}
	return artifacts
}
