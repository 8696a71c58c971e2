package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxIDLength = 64

var validate = newValidator()

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// OptionalString tells an absent field apart from an explicit null.
type OptionalString struct {
	Set   bool
	Value *string
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// Present reports whether the field was sent with a string value.
func (o OptionalString) Present() bool {
	return o.Set && o.Value != nil
}

// CreateMenuRequest is the POST /menus body. ParentID "" and null both mean root.
type CreateMenuRequest struct {
	Name     string  `json:"name" validate:"required"`
	ParentID *string `json:"parentId" validate:"omitempty,max=64,printascii"`
}

// UpdateMenuRequest is the PUT /menus/{id} body. The selected*/parentMenuName fields are
// the ones sent by the detail editor.
type UpdateMenuRequest struct {
	Name     OptionalString `json:"name"`
	ParentID OptionalString `json:"parentId"`

	SelectedMenuID   OptionalString `json:"selectedMenuId"`
	SelectedMenuName OptionalString `json:"selectedMenuName"`
	ParentMenuName   OptionalString `json:"parentMenuName"`
}

// normalizeParent folds "" into nil.
func normalizeParent(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	return p
}

func validateParentID(p *string) error {
	if p == nil {
		return nil
	}
	if err := validate.Var(*p, fmt.Sprintf("max=%d,printascii", maxIDLength)); err != nil {
		return errors.New("parentId must be printable ASCII of at most 64 characters")
	}
	return nil
}

// ValidateStruct validates s by its tags and reports field errors in readable form.
func ValidateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "printascii":
		return fmt.Sprintf("%s must be printable ASCII", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
