// Package buildinfo holds the version string cobra commands print for
// --version, set at build time via -ldflags.
package buildinfo

// Version is overwritten at build time with -ldflags
// "-X bondwg/internal/buildinfo.Version=...". Left as "dev" for local
// builds.
var Version = "dev"
