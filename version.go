package teamup

import "runtime"

// Version is the current version of the teamup client.
const Version = "v0.4.0"

// VersionInfo provides version information.
type VersionInfo struct {
	Version   string
	GoVersion string
}

// GetVersionInfo returns the current version information.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:   Version,
		GoVersion: runtime.Version(),
	}
}

// UserAgent is the default User-Agent header value.
func UserAgent() string {
	return "teamup-client/" + Version
}
