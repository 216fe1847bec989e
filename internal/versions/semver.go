package versions

import (
	"fmt"
	"strconv"
	"strings"
)

// semver is the subset of semantic versioning the docs pipeline needs:
// MAJOR.MINOR.PATCH with an optional leading "v" and optional pre-release
// suffix. Build metadata is ignored.
type semver struct {
	major, minor, patch int
	pre                 string
}

func parseSemver(s string) (semver, error) {
	orig := s
	s = strings.TrimPrefix(s, "v")

	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i]
	}
	var pre string
	if i := strings.IndexByte(s, '-'); i >= 0 {
		pre = s[i+1:]
		s = s[:i]
	}

	parts := strings.Split(s, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return semver{}, fmt.Errorf("not a semantic version: %q", orig)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return semver{}, fmt.Errorf("not a semantic version: %q", orig)
		}
		nums[i] = n
	}
	return semver{major: nums[0], minor: nums[1], patch: nums[2], pre: pre}, nil
}

// compareSemver returns -1, 0, or 1. A pre-release sorts below the
// corresponding release, matching semver precedence rules.
func compareSemver(a, b semver) int {
	for _, d := range []int{a.major - b.major, a.minor - b.minor, a.patch - b.patch} {
		if d < 0 {
			return -1
		}
		if d > 0 {
			return 1
		}
	}
	switch {
	case a.pre == b.pre:
		return 0
	case a.pre == "":
		return 1
	case b.pre == "":
		return -1
	case a.pre < b.pre:
		return -1
	default:
		return 1
	}
}

// newerVersion reports whether a is a strictly newer version than b.
// Strings that do not parse as semver never count as newer.
func newerVersion(a, b string) bool {
	av, err := parseSemver(a)
	if err != nil {
		return false
	}
	bv, err := parseSemver(b)
	if err != nil {
		return true
	}
	return compareSemver(av, bv) > 0
}
