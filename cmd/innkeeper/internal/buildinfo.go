package internal

var version = "dev"

// GetVersion returns the build-time version string, overridden via
// -ldflags "-X .../internal.version=..." in release builds.
func GetVersion() string {
	return version
}
