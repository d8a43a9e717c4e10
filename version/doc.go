// Package version provides build-time version information.
//
// The variables are set with ldflags:
//
//	go build -ldflags "\
//	  -X github.com/ncobase/shopconsole/version.Version=1.2.3 \
//	  -X github.com/ncobase/shopconsole/version.Branch=main \
//	  -X github.com/ncobase/shopconsole/version.Revision=abc123 \
//	  -X 'github.com/ncobase/shopconsole/version.BuiltAt=$(date)'" ./cmd/shopconsole
//
// Unset revision and build time fall back to the VCS stamp the Go
// toolchain embeds. The server exposes the result on GET /api/version and
// the CLI prints it with `shopconsole version`.
package version
