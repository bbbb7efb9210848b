package extractor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"invoice-extractor/internal/domain"
)

const responseSchemaURL = "extract-invoice-response.json"

const responseSchemaJSON = `{
  "type": "object",
  "properties": {
    "success": {"type": "boolean"},
    "error": {"type": ["string", "null"]},
    "data": {
      "type": ["object", "null"],
      "required": ["raw_text", "header_fields", "items", "additional_fields"],
      "properties": {
        "raw_text": {"type": "string"},
        "header_fields": {"$ref": "#/$defs/fields"},
        "items": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["title", "fields"],
            "properties": {
              "title": {"type": "string"},
              "fields": {"$ref": "#/$defs/fields"}
            }
          }
        },
        "additional_fields": {"$ref": "#/$defs/fields"}
      }
    },
    "processing_time": {
      "type": ["object", "null"],
      "properties": {
        "ocr_time": {"type": "number"},
        "structure_time": {"type": "number"},
        "total_time": {"type": "number"}
      }
    }
  },
  "if": {"required": ["success"], "properties": {"success": {"const": true}}},
  "then": {"required": ["data"]},
  "$defs": {
    "fields": {"type": "object"}
  }
}`

var responseSchema = compileResponseSchema()

func compileResponseSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(responseSchemaURL, strings.NewReader(responseSchemaJSON)); err != nil {
		panic(fmt.Sprintf("add response schema: %v", err))
	}
	return compiler.MustCompile(responseSchemaURL)
}

type envelope struct {
	Success        bool           `json:"success"`
	Error          string         `json:"error"`
	Data           *payload       `json:"data"`
	ProcessingTime *domain.Timing `json:"processing_time"`
}

type payload struct {
	RawText          string            `json:"raw_text"`
	HeaderFields     domain.Fields     `json:"header_fields"`
	Items            []domain.LineItem `json:"items"`
	AdditionalFields domain.Fields     `json:"additional_fields"`
}

// decodeResponse classifies a response body. The HTTP status only annotates
// errors: the service reports failures in the body for 2xx, 4xx and 5xx alike.
func decodeResponse(status int, raw []byte) (domain.ExtractionResult, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.ExtractionResult{}, &domain.TransportError{
			Err: fmt.Errorf("unable to parse extraction response (status %d): %w", status, err),
		}
	}
	if err := responseSchema.Validate(doc); err != nil {
		return domain.ExtractionResult{}, &domain.ServiceError{
			Message:    domain.MessageProcessingFailed,
			StatusCode: status,
			Err:        fmt.Errorf("response does not match schema: %w", err),
		}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.ExtractionResult{}, &domain.ServiceError{
			Message:    domain.MessageProcessingFailed,
			StatusCode: status,
			Err:        err,
		}
	}
	if !env.Success {
		return domain.ExtractionResult{}, &domain.ServiceError{Message: env.Error, StatusCode: status}
	}
	if env.Data == nil {
		return domain.ExtractionResult{}, &domain.ServiceError{Message: domain.MessageProcessingFailed, StatusCode: status}
	}

	items := env.Data.Items
	if items == nil {
		items = []domain.LineItem{}
	}
	return domain.ExtractionResult{
		HeaderFields:     env.Data.HeaderFields,
		Items:            items,
		AdditionalFields: env.Data.AdditionalFields,
		RawText:          env.Data.RawText,
		Timing:           env.ProcessingTime,
	}, nil
}
