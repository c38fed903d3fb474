package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const maxBodyBytes = 1048576

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewValidator returns a validator reporting JSON field names with English messages
func NewValidator() (*validator.Validate, ut.Translator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	english := en.New()
	trans, _ := ut.New(english, english).GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, nil, fmt.Errorf("failed to register validation translations: %w", err)
	}
	return validate, trans, nil
}

func (h *Handlers) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		h.errorResponse(w, r, &APIError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid request body: %v", err),
		})
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var validationErrors []ValidationError
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			for _, fe := range ve {
				validationErrors = append(validationErrors, ValidationError{
					Field:   fe.Field(),
					Message: fe.Translate(h.trans),
				})
			}
		}

		h.errorResponse(w, r, &APIError{
			Status:  http.StatusBadRequest,
			Message: "Input validation failed",
			Errors:  validationErrors,
		})
		return false
	}

	return true
}
