package version

import "strconv"

// Compare returns -1, 0, or 1 if v is less than, equal to, or greater
// than other. Major.Minor.Patch compares numerically; Revision is only
// consulted when both versions are legacy 4-part versions. Prerelease
// labels compare per SemVer 2.0 precedence rules; build metadata is
// always ignored.
func (v *Version) Compare(other *Version) int {
	if c := compareInt(v.Major, other.Major); c != 0 {
		return c
	}
	if c := compareInt(v.Minor, other.Minor); c != 0 {
		return c
	}
	if c := compareInt(v.Patch, other.Patch); c != 0 {
		return c
	}
	if v.IsLegacyVersion && other.IsLegacyVersion {
		if c := compareInt(v.Revision, other.Revision); c != 0 {
			return c
		}
	}
	return compareLabels(v.ReleaseLabels, other.ReleaseLabels)
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareLabels implements SemVer 2.0 prerelease precedence: a release
// (no labels) outranks any prerelease, shared positions compare
// numeric-as-number and alphanumeric-as-string with numeric identifiers
// always lower, and a longer label list outranks a shared prefix.
func compareLabels(a, b []string) int {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	if len(a) == 0 {
		return 1
	}
	if len(b) == 0 {
		return -1
	}

	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareLabel(a[i], b[i]); c != 0 {
			return c
		}
	}
	return compareInt(len(a), len(b))
}

func compareLabel(a, b string) int {
	an, aErr := strconv.Atoi(a)
	bn, bErr := strconv.Atoi(b)
	switch {
	case aErr == nil && bErr == nil:
		return compareInt(an, bn)
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Equals reports whether v and other compare equal.
func (v *Version) Equals(other *Version) bool {
	return v.Compare(other) == 0
}

// LessThan reports whether v sorts before other.
func (v *Version) LessThan(other *Version) bool {
	return v.Compare(other) < 0
}

// GreaterThan reports whether v sorts after other.
func (v *Version) GreaterThan(other *Version) bool {
	return v.Compare(other) > 0
}
