// Package api provides typed bindings for the marketplace REST surface.
// Reads go through the server cache; writes invalidate it. Inputs are
// validated locally so malformed requests never reach the network layer.
package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/lapmarkt/lapcli/internal/errs"
	"github.com/lapmarkt/lapcli/internal/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// checkValid runs struct tag validation and converts the first failure into
// a field-level ValidationError.
func checkValid(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &errs.ValidationError{
			Field:   strings.ToLower(fe.Field()),
			Message: messageFor(fe),
		}
	}
	return err
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "gt":
		return "must be positive"
	default:
		return "is invalid"
	}
}

// checkImages enforces the count and size limits on uploaded images.
func checkImages(images []model.ImageUpload) error {
	if len(images) > model.MaxItemImages {
		return &errs.ValidationError{Field: "images", Message: fmt.Sprintf("at most %d images allowed", model.MaxItemImages)}
	}
	for _, img := range images {
		if len(img.Data) > model.MaxImageBytes {
			return &errs.ValidationError{Field: "images", Message: "each image must be smaller than 2MB"}
		}
	}
	return nil
}
