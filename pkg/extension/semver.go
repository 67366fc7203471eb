package extension

import (
	"strconv"
	"strings"
)

// Version is a parsed major.minor.patch version triple.
type Version struct {
	Major int
	Minor int
	Patch int
}

// ParseVersion parses a version string. A leading "v" is stripped and
// missing or non-numeric components default to 0, so "v1.0" parses the
// same as "1.0.0".
func ParseVersion(s string) Version {
	s = strings.TrimPrefix(s, "v")
	parts := strings.Split(s, ".")

	component := func(i int) int {
		if i >= len(parts) {
			return 0
		}
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return 0
		}
		return n
	}

	return Version{
		Major: component(0),
		Minor: component(1),
		Patch: component(2),
	}
}

// Compare returns 1 when v > other, -1 when v < other, and 0 when equal,
// under lexicographic triple comparison.
func (v Version) Compare(other Version) int {
	if v.Major != other.Major {
		return sign(v.Major - other.Major)
	}
	if v.Minor != other.Minor {
		return sign(v.Minor - other.Minor)
	}
	if v.Patch != other.Patch {
		return sign(v.Patch - other.Patch)
	}
	return 0
}

// CompareVersions compares two version strings semantically.
func CompareVersions(a, b string) int {
	return ParseVersion(a).Compare(ParseVersion(b))
}

func sign(n int) int {
	if n > 0 {
		return 1
	}
	return -1
}
