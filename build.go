package tenantd

// BuildInfo represents the information about the tenantd build.
type BuildInfo struct {
	Version string // Version is the current git tag with v prefix stripped
	Commit  string // Commit is the current git commit SHA
	Date    string // Date is the build date in RFC3339
}

var buildInfo = BuildInfo{
	Version: "dev",
	Commit:  "none",
	Date:    "unknown",
}

// SetBuildInfo is called by main to record the linker-provided build values.
func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildInfo.Version = version
	}
	if commit != "" {
		buildInfo.Commit = commit
	}
	if date != "" {
		buildInfo.Date = date
	}
}

// GetBuildInfo returns the current build information.
func GetBuildInfo() BuildInfo {
	return buildInfo
}
