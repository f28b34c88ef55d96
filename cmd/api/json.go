package main

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"

	"godsendjoseph.dev/gaushala-api/internal/upload"
)

var Validate *validator.Validate

func init() {
	Validate = validator.New(validator.WithRequiredStructEnabled())
	_ = Validate.RegisterValidation("safepath", func(fl validator.FieldLevel) bool {
		return upload.IsSafePath(fl.Field().String())
	})
}

func writeJSONBody(writer http.ResponseWriter, status int, body any) error {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	return json.NewEncoder(writer).Encode(body)
}

func writeJSON(writer http.ResponseWriter, status int, message string, data any) error {
	return writeJSONBody(writer, status, map[string]any{
		"status":  status,
		"success": status < 400,
		"message": message,
		"data":    data,
	})
}

func writeJSONError(writer http.ResponseWriter, status int, message string, errorsMap map[string]string) error {
	var data any
	if len(errorsMap) > 0 {
		data = map[string]any{"errors": errorsMap}
	}
	return writeJSON(writer, status, message, data)
}

// readFormData parses a multipart or urlencoded body of at most maxBytes and
// decodes the form values into data using the "form" tags.
func readFormData(writer http.ResponseWriter, request *http.Request, data any, maxBytes int64) (map[string][]*multipart.FileHeader, error) {
	request.Body = http.MaxBytesReader(writer, request.Body, maxBytes)

	files := make(map[string][]*multipart.FileHeader)

	if err := request.ParseMultipartForm(maxBytes); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			return nil, err
		}
		if err := request.ParseForm(); err != nil {
			return nil, err
		}
	} else {
		files = request.MultipartForm.File
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           data,
		TagName:          "form",
		WeaklyTypedInput: true, // form values are strings, e.g. "true" for a bool
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}

	values := make(map[string]interface{})
	for key, val := range request.Form {
		if len(val) == 1 {
			values[key] = val[0]
		} else {
			values[key] = val
		}
	}

	if err := decoder.Decode(values); err != nil {
		return nil, err
	}

	return files, nil
}

// validationErrors maps each failed field to the tag it failed on.
func validationErrors(err error) map[string]string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil
	}
	out := make(map[string]string, len(validationErrs))
	for _, fieldErr := range validationErrs {
		out[fieldErr.Field()] = fieldErr.Tag()
	}
	return out
}
