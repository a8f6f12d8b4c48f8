// Package validator checks generate requests against an embedded JSON schema.
package validator

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"uigen/internal/domain/entity"
)

const schemaURL = "https://uigen.local/schemas/generate_request.schema.json"

//go:embed schema/generate_request.schema.json
var schemaJSON []byte

var missingPropRe = regexp.MustCompile(`'([^']+)'`)

type Validator struct {
	schema *jsonschema.Schema
}

func New() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: sch}, nil
}

// Parse validates a raw request body and decodes it. Failures are always *entity.ValidationError.
func (v *Validator) Parse(body []byte) (entity.GenerateRequest, error) {
	var req entity.GenerateRequest

	var document any
	if err := json.Unmarshal(body, &document); err != nil {
		return req, invalid(entity.FieldError{Field: "body", Message: "request body must be valid JSON"})
	}

	if err := v.schema.Validate(document); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return req, invalid(entity.FieldError{Field: "body", Message: err.Error()})
		}
		return req, invalid(fieldErrors(ve)...)
	}

	if err := json.Unmarshal(body, &req); err != nil {
		return req, invalid(entity.FieldError{Field: "body", Message: err.Error()})
	}
	return req, nil
}

func invalid(errs ...entity.FieldError) *entity.ValidationError {
	return &entity.ValidationError{Message: "Invalid request data", Errors: errs}
}

func fieldErrors(root *jsonschema.ValidationError) []entity.FieldError {
	var out []entity.FieldError
	var walk func(ve *jsonschema.ValidationError)
	walk = func(ve *jsonschema.ValidationError) {
		if len(ve.Causes) > 0 {
			for _, c := range ve.Causes {
				walk(c)
			}
			return
		}
		out = append(out, leafErrors(ve)...)
	}
	walk(root)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

func leafErrors(ve *jsonschema.ValidationError) []entity.FieldError {
	keyword := ve.KeywordLocation[strings.LastIndex(ve.KeywordLocation, "/")+1:]

	if keyword == "required" {
		var out []entity.FieldError
		for _, m := range missingPropRe.FindAllStringSubmatch(ve.Message, -1) {
			out = append(out, entity.FieldError{Field: m[1], Message: "Required"})
		}
		if len(out) > 0 {
			return out
		}
	}

	field := strings.TrimPrefix(ve.InstanceLocation, "/")
	if field == "" {
		field = "body"
	}
	return []entity.FieldError{{Field: field, Message: message(field, keyword, ve.Message)}}
}

func message(field, keyword, fallback string) string {
	if field == "prompt" {
		switch keyword {
		case "minLength":
			return "Prompt must be at least 10 characters"
		case "maxLength":
			return "Prompt must be less than 1000 characters"
		}
	}
	return fallback
}
