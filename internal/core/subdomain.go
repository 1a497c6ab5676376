package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/kubidu/kubidu/internal/platform"
)

const (
	maxSubdomainLength   = 63
	maxSubdomainPart     = 30
	collisionSuffixLen   = 4
	maxCollisionAttempts = 10
	fallbackSuffixLen    = 8
	defaultSubdomainName = "service"
)

var (
	invalidLabelChars = regexp.MustCompile(`[^a-z0-9-]+`)
	hyphenRuns        = regexp.MustCompile(`-{2,}`)
	dnsLabel          = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)
)

// SubdomainChecker reports whether a subdomain is already claimed.
type SubdomainChecker interface {
	SubdomainExists(ctx context.Context, subdomain string) (bool, error)
}

// SubdomainAllocator derives a platform-unique subdomain from a service name
// and its project slug.
type SubdomainAllocator struct {
	checker      SubdomainChecker
	randomSuffix func(n int) string
	uniqueSuffix func(n int) string
}

func NewSubdomainAllocator(checker SubdomainChecker) *SubdomainAllocator {
	return &SubdomainAllocator{
		checker:      checker,
		randomSuffix: platform.RandomSuffix,
		uniqueSuffix: platform.UniqueSuffix,
	}
}

// SanitizeLabel lowercases s and collapses every run of characters outside
// [a-z0-9-] into one hyphen. Leading and trailing hyphens are removed.
func SanitizeLabel(s string) string {
	s = strings.ToLower(s)
	s = invalidLabelChars.ReplaceAllString(s, "-")
	s = hyphenRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ValidSubdomain reports whether s is a usable DNS label.
func ValidSubdomain(s string) bool {
	return dnsLabel.MatchString(s)
}

// BaseSubdomain is the collision-free candidate for (name, projectSlug).
func BaseSubdomain(name, projectSlug string) string {
	n := truncateLabel(SanitizeLabel(name), maxSubdomainPart)
	if n == "" {
		n = defaultSubdomainName
	}
	p := truncateLabel(SanitizeLabel(projectSlug), maxSubdomainPart)
	if p == "" {
		return n
	}
	return truncateLabel(n+"-"+p, maxSubdomainLength)
}

func truncateLabel(s string, max int) string {
	if len(s) > max {
		s = s[:max]
	}
	return strings.TrimRight(s, "-")
}

// Allocate returns an unused subdomain. Without collisions the result is
// BaseSubdomain(name, projectSlug). On collision a random four character
// suffix is tried up to ten times, never repeating a candidate; after that an
// eight character unique suffix is appended to the sanitized name.
func (a *SubdomainAllocator) Allocate(ctx context.Context, name, projectSlug string) (string, error) {
	base := BaseSubdomain(name, projectSlug)
	taken, err := a.checker.SubdomainExists(ctx, base)
	if err != nil {
		return "", fmt.Errorf("check subdomain %s: %w", base, err)
	}
	if !taken {
		return base, nil
	}

	stem := truncateLabel(base, maxSubdomainLength-collisionSuffixLen-1)
	tried := map[string]bool{base: true}
	for attempt := 0; attempt < maxCollisionAttempts; attempt++ {
		candidate := stem + "-" + a.randomSuffix(collisionSuffixLen)
		for spins := 0; tried[candidate] && spins < 100; spins++ {
			candidate = stem + "-" + a.randomSuffix(collisionSuffixLen)
		}
		if tried[candidate] {
			break
		}
		tried[candidate] = true

		taken, err := a.checker.SubdomainExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check subdomain %s: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}

	n := SanitizeLabel(name)
	if n == "" {
		n = defaultSubdomainName
	}
	return truncateLabel(n, maxSubdomainLength-fallbackSuffixLen-1) + "-" + a.uniqueSuffix(fallbackSuffixLen), nil
}
