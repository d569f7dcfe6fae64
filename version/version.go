package version

// Version is set at build time via -ldflags "-X github.com/liamg/nagprobe/version.Version=..."
var Version string

// String returns the version, falling back to a development marker.
func String() string {
	if Version == "" {
		return "development version"
	}
	return Version
}
