// Package profiles provides embedded OCSP extension profiles.
//
// These profiles describe the extensions a client attaches to its requests
// and a responder attaches to its responses. Users can also copy and
// customize them.
package profiles

import "embed"

// FS contains all embedded profile YAML files.
//
//go:embed *.yaml
var FS embed.FS
