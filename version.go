package factoriollm

import _ "embed"

// Version is the release version, stamped from version.txt at build time.
//
//go:embed version.txt
var Version string
