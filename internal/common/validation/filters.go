// internal/common/validation/filters.go

// Package validation checks subscription filter sets against a closed JSON
// schema before they are persisted. The schema is deliberately exhaustive:
// unknown fields are rejected rather than carried along as an open blob.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"estatehub-notifier/internal/common/errors"
	"estatehub-notifier/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

const filterSetSchema = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"category": {"type": "string", "minLength": 1},
		"type":     {"type": "string", "minLength": 1},
		"minPrice": {"type": "integer", "minimum": 0},
		"maxPrice": {"type": "integer", "minimum": 0},
		"minArea":  {"type": "integer", "minimum": 0},
		"maxArea":  {"type": "integer", "minimum": 0},
		"tags": {
			"type": "array",
			"items": {"type": "string", "minLength": 1}
		}
	}
}`

// compiled once at init; the schema literal is a constant.
var filterSchema *gojsonschema.Schema

func init() {
	var err error
	filterSchema, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(filterSetSchema))
	if err != nil {
		panic(fmt.Sprintf("filter schema does not compile: %v", err))
	}
}

// ValidateFilterSet validates raw filter JSON against the closed schema and
// decodes it into a models.FilterSet. Range fields are additionally checked
// for min <= max.
func ValidateFilterSet(raw json.RawMessage) (models.FilterSet, error) {
	var fs models.FilterSet

	result, err := filterSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fs, errors.NewInvalidFilterFormatError(err.Error())
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return fs, errors.NewInvalidFilterFormatError(strings.Join(details, "; "))
	}

	if err := json.Unmarshal(raw, &fs); err != nil {
		return fs, errors.NewInvalidFilterFormatError(err.Error())
	}

	if err := CheckRanges(fs); err != nil {
		return fs, err
	}
	return fs, nil
}

// CheckRanges rejects inverted price/area ranges.
func CheckRanges(fs models.FilterSet) error {
	if fs.MinPrice != nil && fs.MaxPrice != nil && *fs.MinPrice > *fs.MaxPrice {
		return errors.NewInvalidFilterFormatError(
			fmt.Sprintf("minPrice %d exceeds maxPrice %d", *fs.MinPrice, *fs.MaxPrice))
	}
	if fs.MinArea != nil && fs.MaxArea != nil && *fs.MinArea > *fs.MaxArea {
		return errors.NewInvalidFilterFormatError(
			fmt.Sprintf("minArea %d exceeds maxArea %d", *fs.MinArea, *fs.MaxArea))
	}
	return nil
}
