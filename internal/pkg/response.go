package pkg

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/simp-lee/crudbase/internal/domain"
)

// Envelope is the standard JSON envelope for API responses. Success responses
// carry Data and a human-readable Message; error responses carry Message and,
// when an inner cause exists, Detail.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
	Detail  string `json:"detail,omitempty"`
}

// ValidationErrorResponse is the JSON envelope for binding validation errors.
type ValidationErrorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

// OK sends a 200 JSON response with the given envelope.
func OK(c *gin.Context, env *Envelope) {
	c.JSON(http.StatusOK, env)
}

// Created sends a 201 JSON response with the given envelope.
func Created(c *gin.Context, env *Envelope) {
	c.JSON(http.StatusCreated, env)
}

// Error sends a JSON error response. If err is a *domain.AppError, its code is
// mapped to the appropriate HTTP status; otherwise 500 is returned. Service
// errors expose their inner cause in the detail field.
func Error(c *gin.Context, err error) {
	status := domain.HTTPStatusCode(err)

	msg := "internal error"
	detail := ""
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
		if appErr.Code == domain.CodeService && appErr.Err != nil {
			detail = appErr.Err.Error()
		}
	}

	c.JSON(status, Envelope{
		Success: false,
		Message: msg,
		Detail:  detail,
	})
}

// BindAndValidate binds the request body to obj and validates it.
// On failure it automatically sends a validation error response and returns false.
// Because obj is available, JSON struct tags are used for field names when possible.
// Usage in handlers:
//
//	if !pkg.BindAndValidate(c, &req) { return }
func BindAndValidate(c *gin.Context, obj any) bool {
	if err := c.ShouldBind(obj); err != nil {
		validationErrorWithType(c, err, obj)
		return false
	}
	return true
}

// validationErrorWithType sends a 400 validation error response.
// When obj is non-nil, it reflects on the struct to prefer JSON tag names.
func validationErrorWithType(c *gin.Context, err error, obj any) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		// Not a field-level validation error; send a generic bad request.
		c.JSON(http.StatusBadRequest, Envelope{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	// Build a struct-field → json-tag map when the concrete type is available.
	jsonTags := buildJSONTagMap(obj)

	fieldErrors := make(map[string]string, len(ve))
	for _, fe := range ve {
		name := fe.Field()
		if tag, ok := jsonTags[fe.StructField()]; ok {
			name = tag
		} else {
			name = strings.ToLower(name)
		}
		msg := fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		fieldErrors[name] = msg
	}

	c.JSON(http.StatusBadRequest, ValidationErrorResponse{
		Success: false,
		Message: "validation error",
		Errors:  fieldErrors,
	})
}

// buildJSONTagMap returns a map from struct field name to its JSON tag name.
// If obj is nil or not a struct (pointer), it returns an empty map. Slices of
// structs resolve to the element type so bulk payloads get proper names.
func buildJSONTagMap(obj any) map[string]string {
	if obj == nil {
		return nil
	}
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	m := make(map[string]string, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if name := parseJSONTagName(tag); name != "" {
			m[f.Name] = name
		}
	}
	return m
}

// parseJSONTagName extracts the field name from a JSON struct tag value.
func parseJSONTagName(tag string) string {
	if tag == "" || tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" || name == "-" {
		return ""
	}
	return name
}
