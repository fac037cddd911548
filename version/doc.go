// Package version carries build information stamped at link time:
//
//	go build -ldflags "-X github.com/kbukum/asthma-api/version.Version=1.4.0 \
//	  -X github.com/kbukum/asthma-api/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Values that were not stamped fall back to the VCS settings the Go
// toolchain embeds in the binary.
package version
