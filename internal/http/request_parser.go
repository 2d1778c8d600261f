// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for decoding and validating request bodies
// and query parameters. Every failure is returned as a core validation error
// so handlers can pass it straight to writeError.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"subtrack/internal/core"
)

const maxBodyBytes = 1 << 20

// newValidator returns a validator that reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// DecodeJSON reads a single JSON value from the request body into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if dec.More() {
		return core.NewValidationError("request body must contain a single JSON value", nil)
	}
	return nil
}

func decodeError(err error) error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		sizeErr   *http.MaxBytesError
	)
	switch {
	case errors.Is(err, io.EOF):
		return core.NewValidationError("request body is empty", nil)
	case errors.As(err, &syntaxErr):
		return core.NewValidationError("malformed JSON", map[string]any{"offset": syntaxErr.Offset})
	case errors.Is(err, io.ErrUnexpectedEOF):
		return core.NewValidationError("malformed JSON", nil)
	case errors.As(err, &typeErr):
		return core.NewValidationError(fmt.Sprintf("invalid value for %s", typeErr.Field), map[string]any{
			"field":    typeErr.Field,
			"expected": typeErr.Type.String(),
		})
	case errors.As(err, &sizeErr):
		return core.NewValidationError("request body too large", map[string]any{"limit_bytes": sizeErr.Limit})
	default:
		return core.NewValidationError("invalid request body", map[string]any{"error": err.Error()})
	}
}

// ValidateStruct runs the struct tags of dst and converts failures into a
// validation error listing every offending field.
func ValidateStruct(v *validator.Validate, dst any) error {
	err := v.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate request: %w", err)
	}
	fields := make(map[string]any, len(verrs))
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		fields[fe.Field()] = rule
		names = append(names, fe.Field())
	}
	return core.NewValidationError("invalid "+strings.Join(names, ", "), map[string]any{"fields": fields})
}

// ParseBoolQuery reads an optional boolean query parameter.
func ParseBoolQuery(query url.Values, key string) (bool, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, core.InvalidField(key, fmt.Errorf("not a boolean: %q", v))
	}
	return b, nil
}

// ParseLimit reads a positive integer query parameter, returning def when it
// is absent.
func ParseLimit(query url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, core.InvalidField(key, fmt.Errorf("not an integer: %q", v))
	}
	if n < 1 {
		return 0, core.InvalidField(key, fmt.Errorf("must be at least 1, got %d", n))
	}
	return n, nil
}

// ParseDateQuery reads an optional YYYY-MM-DD query parameter, defaulting to
// the calendar day of now.
func ParseDateQuery(query url.Values, key string, now time.Time) (core.Date, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return core.DateOf(now), nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, core.InvalidField(key, err)
	}
	return d, nil
}
