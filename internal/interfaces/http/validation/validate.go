// Package validation runs struct-tag validation on request bodies the
// handler package decodes, beyond what gin's own binding tags check (a
// UUID's zero value passes `binding:"required"` since it's not an empty
// string).
package validation

import "github.com/go-playground/validator/v10"

var instance = validator.New()

// Struct validates every `validate:"..."` tag on data, returning nil if
// every field passes.
func Struct(data interface{}) error {
	return instance.Struct(data)
}
