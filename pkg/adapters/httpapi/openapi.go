package httpapi

import (
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var specYAML []byte

// apiSpec is the parsed surface description. Loaded once; a malformed
// embedded document is a build defect, so failure panics at init.
var apiSpec = mustLoadSpec()

func mustLoadSpec() *openapi3.T {
	doc, err := openapi3.NewLoader().LoadFromData(specYAML)
	if err != nil {
		panic(fmt.Sprintf("httpapi: embedded openapi.yaml: %v", err))
	}
	return doc
}

func apiVersion() string {
	if apiSpec.Info != nil {
		return apiSpec.Info.Version
	}
	return "unknown"
}
