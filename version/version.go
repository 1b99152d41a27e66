package version

import "fmt"

// Version is a semantic version of hreq.
type Version struct {
	major int
	minor int
	patch int
}

func (v *Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.major, v.minor, v.patch)
}

// Current returns the running version of hreq.
func Current() *Version {
	return &Version{major: 0, minor: 1, patch: 0}
}
