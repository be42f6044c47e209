package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses a version string as SemVer 2.0 (Major.Minor.Patch) or a
// legacy 4-part version (Major.Minor.Build.Revision). "Major.Minor" is
// accepted as shorthand for "Major.Minor.0".
func Parse(s string) (*Version, error) {
	if s == "" {
		return nil, fmt.Errorf("version: empty string")
	}

	original := s
	metadata := ""
	if i := strings.IndexByte(s, '+'); i >= 0 {
		metadata = s[i+1:]
		s = s[:i]
	}

	var labels []string
	if i := strings.IndexByte(s, '-'); i >= 0 {
		labels = strings.Split(s[i+1:], ".")
		s = s[:i]
	}

	parts := strings.Split(s, ".")
	if len(parts) < 2 || len(parts) > 4 {
		return nil, fmt.Errorf("version: invalid format %q", original)
	}

	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("version: invalid numeric component %q in %q", p, original)
		}
		nums[i] = n
	}

	v := &Version{
		Major:          nums[0],
		Minor:          nums[1],
		ReleaseLabels:  labels,
		Metadata:       metadata,
		originalString: original,
	}
	if len(nums) >= 3 {
		v.Patch = nums[2]
	}
	if len(nums) == 4 {
		v.IsLegacyVersion = true
		v.Revision = nums[3]
	}
	return v, nil
}

// MustParse parses s and panics if it is not a valid version.
func MustParse(s string) *Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}
