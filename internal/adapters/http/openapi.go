package httpadapter

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/kirillkom/openplag/internal/core/domain"
)

//go:embed openapi.yaml
var openAPIDocument []byte

// schemaValidator checks JSON request bodies against component schemas of the
// embedded OpenAPI document.
type schemaValidator struct {
	doc *openapi3.T
}

func newSchemaValidator() (*schemaValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPIDocument)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	return &schemaValidator{doc: doc}, nil
}

// decode validates raw against the named schema and unmarshals it into dst.
func (v *schemaValidator) decode(schema string, raw []byte, dst any) error {
	ref, ok := v.doc.Components.Schemas[schema]
	if !ok || ref.Value == nil {
		return fmt.Errorf("openapi schema %q is not defined", schema)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode request", fmt.Errorf("invalid json: %w", err))
	}
	if err := ref.Value.VisitJSON(generic); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "validate request", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode request", err)
	}
	return nil
}
