// Package routing classifies request paths and decides, per request, whether
// to allow, redirect, or internally rewrite. The decision core is pure:
// no I/O, no shared state, one decision per request.
package routing

import (
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// RouteClass categorizes a request path.
type RouteClass int

const (
	// ClassPublic paths are reachable without a session.
	ClassPublic RouteClass = iota

	// ClassAuthOnly paths (login, register, password flows) are public but
	// blocked for already-authenticated sessions.
	ClassAuthOnly

	// ClassProtected paths require a session.
	ClassProtected

	// ClassTenantInternal paths already carry the internal rewrite prefix
	// and bypass all further tenant logic.
	ClassTenantInternal

	// ClassExcluded paths (assets, API, framework internals) are filtered
	// out before the engine runs; they are tolerated here and always
	// allowed.
	ClassExcluded
)

func (c RouteClass) String() string {
	switch c {
	case ClassPublic:
		return "public"
	case ClassAuthOnly:
		return "auth_only"
	case ClassProtected:
		return "protected"
	case ClassTenantInternal:
		return "tenant_internal"
	case ClassExcluded:
		return "excluded"
	default:
		return "unknown"
	}
}

// InternalPrefix is the tenant-internal rewrite namespace. A path under it
// has already been rewritten and must never be rewritten again.
const InternalPrefix = "/_subdomain"

// Tables holds the route membership configuration. A loaded Tables is
// never mutated; reconfiguration builds a fresh one and swaps it into the
// engine.
type Tables struct {
	// Public is the exact-match set of public paths.
	Public map[string]bool

	// AuthOnly is the exact-match set of auth flow paths (a subset of
	// Public in practice).
	AuthOnly map[string]bool

	// Protected is an extra exact-match set of protected paths on top of
	// the prefix rules.
	Protected map[string]bool

	// ProtectedPrefixes are prefix rules: a path equal to or nested under
	// one of these requires a session.
	ProtectedPrefixes []string

	// ExcludedPrefixes never reach the engine in a correctly configured
	// host; they classify as Excluded and always allow.
	ExcludedPrefixes []string

	// OnboardingPath is exempt from the protected prefix rules and is the
	// target of the onboarding gate.
	OnboardingPath string
}

// tablesFile is the YAML shape for externally configured route tables.
type tablesFile struct {
	Public            []string `yaml:"public"`
	AuthOnly          []string `yaml:"authOnly"`
	Protected         []string `yaml:"protected"`
	ProtectedPrefixes []string `yaml:"protectedPrefixes"`
	ExcludedPrefixes  []string `yaml:"excludedPrefixes"`
	OnboardingPath    string   `yaml:"onboardingPath"`
}

// DefaultTables returns the compiled-in route tables.
func DefaultTables() *Tables {
	return &Tables{
		Public: toSet([]string{
			"/",
			"/login",
			"/register",
			"/forgot-password",
			"/reset-password",
			"/accept-invitation",
			"/careers",
			"/jobs",
		}),
		AuthOnly: toSet([]string{
			"/login",
			"/register",
			"/forgot-password",
			"/reset-password",
			"/accept-invitation",
		}),
		Protected:         toSet(nil),
		ProtectedPrefixes: []string{"/employer", "/company"},
		ExcludedPrefixes:  []string{"/api", "/static", "/assets", "/favicon.ico", "/robots.txt"},
		OnboardingPath:    "/company/onboarding",
	}
}

// LoadTables reads route tables from a YAML file, or returns the defaults
// when path is empty. Missing files and empty tables are startup errors:
// route configuration problems fail fast, never per request.
func LoadTables(file string) (*Tables, error) {
	if file == "" {
		return DefaultTables(), nil
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read route tables: %w", err)
	}

	var tf tablesFile
	if err := yaml.Unmarshal(raw, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse route tables: %w", err)
	}

	t := &Tables{
		Public:            toSet(tf.Public),
		AuthOnly:          toSet(tf.AuthOnly),
		Protected:         toSet(tf.Protected),
		ProtectedPrefixes: tf.ProtectedPrefixes,
		ExcludedPrefixes:  tf.ExcludedPrefixes,
		OnboardingPath:    tf.OnboardingPath,
	}
	if t.OnboardingPath == "" {
		t.OnboardingPath = DefaultTables().OnboardingPath
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate rejects incomplete route configuration.
func (t *Tables) Validate() error {
	if len(t.Public) == 0 {
		return fmt.Errorf("route tables: public set is empty")
	}
	if len(t.AuthOnly) == 0 {
		return fmt.Errorf("route tables: auth set is empty")
	}
	if len(t.ProtectedPrefixes) == 0 && len(t.Protected) == 0 {
		return fmt.Errorf("route tables: no protected routes configured")
	}
	return nil
}

// Classify maps a normalized path to its route class.
func (t *Tables) Classify(p string) RouteClass {
	p = NormalizePath(p)

	if strings.HasPrefix(p, InternalPrefix+"/") || p == InternalPrefix {
		return ClassTenantInternal
	}

	for _, prefix := range t.ExcludedPrefixes {
		if hasPathPrefix(p, prefix) {
			return ClassExcluded
		}
	}
	if looksLikeAsset(p) {
		return ClassExcluded
	}

	if t.AuthOnly[p] {
		return ClassAuthOnly
	}

	if p == t.OnboardingPath {
		return ClassPublic
	}

	for _, prefix := range t.ProtectedPrefixes {
		if hasPathPrefix(p, prefix) {
			return ClassProtected
		}
	}
	if t.Protected[p] {
		return ClassProtected
	}

	// Everything else defaults to public: availability over aggressive
	// blocking, the backend re-checks auth on every API call anyway.
	return ClassPublic
}

// NormalizePath cleans a request path to a leading-slash canonical form.
func NormalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		return "/"
	}
	return cleaned
}

// hasPathPrefix matches prefix as a whole path segment: "/employer" matches
// "/employer" and "/employer/jobs" but not "/employers".
func hasPathPrefix(p, prefix string) bool {
	if prefix == "" || prefix == "/" {
		return false
	}
	prefix = strings.TrimSuffix(prefix, "/")
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

// looksLikeAsset reports whether the final segment carries a file extension
// (static files that should never be routed by the engine).
func looksLikeAsset(p string) bool {
	last := p[strings.LastIndex(p, "/")+1:]
	dot := strings.LastIndex(last, ".")
	return dot > 0 && dot < len(last)-1
}

func toSet(paths []string) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			set[NormalizePath(p)] = true
		}
	}
	return set
}
