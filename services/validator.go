package services

import (
	"bytes"
	"dot-catcher/errors"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// A JSON null is as good as a missing field.
	_ = v.RegisterValidation("notnull", func(fl validator.FieldLevel) bool {
		raw, ok := fl.Field().Interface().(json.RawMessage)
		if !ok {
			return false
		}
		trimmed := bytes.TrimSpace(raw)
		return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
	})
	return v
}

// CatchDotRequest is the data of a catch_dot client message.
type CatchDotRequest struct {
	Position  json.RawMessage `json:"position" validate:"required,notnull"`
	Timestamp json.RawMessage `json:"timestamp" validate:"required,notnull"`
}

func ParseCatchDot(data json.RawMessage) (CatchDotRequest, error) {
	var req CatchDotRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return CatchDotRequest{}, fmt.Errorf("%w: %w", errors.ErrInvalidAction, err)
	}
	if err := validate.Struct(req); err != nil {
		return CatchDotRequest{}, fmt.Errorf("%w: %w", errors.ErrInvalidAction, err)
	}
	return req, nil
}
