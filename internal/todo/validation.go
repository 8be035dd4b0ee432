package todo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Validation rule names reported in Violation.Rule.
const (
	RuleRequired  = "required"
	RuleType      = "type"
	RuleMinLength = "min_length"
	RuleMaxLength = "max_length"
	RuleMinimum   = "minimum"
)

const inputSchemaURL = "todos://input.schema.json"

const inputSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["description", "dependsOn", "done"],
  "properties": {
    "description": {"type": "string", "minLength": 1, "maxLength": 80},
    "dependsOn": {
      "type": "array",
      "items": {"type": "integer", "minimum": 0}
    },
    "done": {"type": "boolean"}
  }
}`

// Violation is a single failed constraint.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.Field == "" {
		return v.Message
	}
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidationError lists every constraint a create or update payload broke.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "invalid task input"
	}
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return "invalid task input: " + strings.Join(parts, "; ")
}

// Has reports whether a violation with the given field and rule is present.
func (e *ValidationError) Has(field, rule string) bool {
	for _, v := range e.Violations {
		if v.Field == field && v.Rule == rule {
			return true
		}
	}
	return false
}

// ValidateInput checks a typed payload. It returns nil or a *ValidationError.
func ValidateInput(in Input) error {
	var violations []Violation

	n := utf8.RuneCountInString(in.Description)
	if n < 1 {
		violations = append(violations, Violation{
			Field:   "description",
			Rule:    RuleMinLength,
			Message: "must not be empty",
		})
	}
	if n > MaxDescriptionLength {
		violations = append(violations, Violation{
			Field:   "description",
			Rule:    RuleMaxLength,
			Message: fmt.Sprintf("must be at most %d characters, got %d", MaxDescriptionLength, n),
		})
	}
	for i, id := range in.DependsOn {
		if id < 0 {
			violations = append(violations, Violation{
				Field:   fmt.Sprintf("dependsOn[%d]", i),
				Rule:    RuleMinimum,
				Message: fmt.Sprintf("must be non-negative, got %d", id),
			})
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// ValidateInputJSON checks a raw JSON payload against the input schema.
// This catches what a typed Input cannot represent, such as fractional ids
// or a missing field.
func ValidateInputJSON(data []byte) error {
	schema, err := compiledInputSchema()
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return &ValidationError{Violations: []Violation{{
			Rule:    RuleType,
			Message: fmt.Sprintf("malformed JSON: %v", err),
		}}}
	}

	if err := schema.Validate(doc); err != nil {
		ve, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return fmt.Errorf("validate input: %w", err)
		}
		var violations []Violation
		collectViolations(ve, &violations)
		return &ValidationError{Violations: violations}
	}
	return nil
}

var (
	inputSchemaOnce sync.Once
	inputSchemaVal  *jsonschema.Schema
	inputSchemaErr  error
)

func compiledInputSchema() (*jsonschema.Schema, error) {
	inputSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(inputSchemaURL, strings.NewReader(inputSchema)); err != nil {
			inputSchemaErr = fmt.Errorf("load input schema: %w", err)
			return
		}
		inputSchemaVal, inputSchemaErr = compiler.Compile(inputSchemaURL)
		if inputSchemaErr != nil {
			inputSchemaErr = fmt.Errorf("compile input schema: %w", inputSchemaErr)
		}
	})
	return inputSchemaVal, inputSchemaErr
}

var quotedName = regexp.MustCompile(`'([^']+)'`)

// collectViolations flattens the leaves of a schema error tree.
func collectViolations(err *jsonschema.ValidationError, out *[]Violation) {
	if err == nil {
		return
	}
	if len(err.Causes) > 0 {
		for _, cause := range err.Causes {
			collectViolations(cause, out)
		}
		return
	}

	rule := schemaRule(err.KeywordLocation)
	field := pointerToField(err.InstanceLocation)

	if rule == RuleRequired {
		names := quotedName.FindAllStringSubmatch(err.Message, -1)
		for _, m := range names {
			*out = append(*out, Violation{Field: m[1], Rule: RuleRequired, Message: "missing required field"})
		}
		if len(names) > 0 {
			return
		}
	}
	*out = append(*out, Violation{Field: field, Rule: rule, Message: err.Message})
}

// schemaRule maps the last keyword of a schema location to a rule name.
func schemaRule(keywordLocation string) string {
	keyword := keywordLocation
	if i := strings.LastIndexByte(keywordLocation, '/'); i >= 0 {
		keyword = keywordLocation[i+1:]
	}
	switch keyword {
	case "minLength":
		return RuleMinLength
	case "maxLength":
		return RuleMaxLength
	case "minimum":
		return RuleMinimum
	case "required":
		return RuleRequired
	default:
		return RuleType
	}
}

// pointerToField turns "/dependsOn/0" into "dependsOn[0]".
func pointerToField(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	var b strings.Builder
	for _, part := range strings.Split(ptr, "/") {
		if part == "" {
			continue
		}
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if idx, err := strconv.Atoi(part); err == nil {
			fmt.Fprintf(&b, "[%d]", idx)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}
