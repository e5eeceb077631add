// Package validation validates inbound generation requests against a JSON
// schema before any external call is made.
package validation

import (
	"fmt"
	"net/url"
	"strings"

	"tubescript/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

const (
	TopicMinLength = 5
	TopicMaxLength = 500
)

// ContentTypes is the closed set of accepted script categories.
var ContentTypes = []string{"Vlog", "Tutorial", "Commentary", "Review"}

var generateRequestSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"topic": map[string]interface{}{
			"type":      "string",
			"minLength": TopicMinLength,
			"maxLength": TopicMaxLength,
		},
		"contentType": map[string]interface{}{
			"type": "string",
			"enum": ContentTypes,
		},
		"referenceUrl": map[string]interface{}{
			"type": "string",
		},
	},
	"required":             []string{"topic", "contentType"},
	"additionalProperties": false,
}

// ValidateGenerateRequest checks the decoded request body against the schema
// and verifies referenceUrl syntax. Returns a field-level StandardError on
// the first violation.
func ValidateGenerateRequest(body map[string]interface{}) error {
	schemaLoader := gojsonschema.NewGoLoader(generateRequestSchema)
	documentLoader := gojsonschema.NewGoLoader(body)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return errors.NewValidationError("", fmt.Sprintf("schema validation error: %v", err))
	}

	if !result.Valid() {
		first := result.Errors()[0]
		return errors.NewValidationError(first.Field(), first.Description())
	}

	if raw, ok := body["referenceUrl"]; ok {
		refURL, _ := raw.(string)
		if err := ValidateReferenceURL(refURL); err != nil {
			return err
		}
	}

	return nil
}

// ValidateReferenceURL verifies the reference URL is syntactically valid and
// uses an http(s) scheme. The content behind it is never fetched here.
func ValidateReferenceURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.NewValidationError("referenceUrl", "reference URL must not be empty")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return errors.NewValidationError("referenceUrl", fmt.Sprintf("malformed URL: %v", err))
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.NewValidationError("referenceUrl", fmt.Sprintf("unsupported URL scheme %q", parsed.Scheme))
	}
	if parsed.Host == "" {
		return errors.NewValidationError("referenceUrl", "URL host is missing")
	}

	return nil
}
