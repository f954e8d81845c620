package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"polls-service/internal/domain"
)

type fieldErrorResponse struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Errors []fieldErrorResponse `json:"errors"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

// fail writes the response matching err: 400 for validation failures, 404 for
// missing resources and 500 for everything else.
func fail(c *gin.Context, op string, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		resp := errorResponse{Errors: make([]fieldErrorResponse, 0, len(verr.Fields))}
		for _, f := range verr.Fields {
			resp.Errors = append(resp.Errors, fieldErrorResponse{Field: f.Field, Code: f.Code, Message: f.Message})
		}
		c.JSON(http.StatusBadRequest, resp)
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, detailResponse{Detail: "Not found."})
	default:
		slog.Error(op+" failed", "error", err, "request_id", c.GetString(requestIDKey))
		c.JSON(http.StatusInternalServerError, detailResponse{Detail: "Internal server error."})
	}
}

// bindError turns a gin binding failure into a ValidationError.
func bindError(err error) *domain.ValidationError {
	verr := &domain.ValidationError{}

	var fieldErrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &fieldErrs):
		for _, fe := range fieldErrs {
			verr.Add(fieldName(fe), tagCode(fe.Tag()), tagMessage(fe))
		}
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = domain.NonFieldErrors
		}
		verr.Add(field, domain.CodeInvalid, fmt.Sprintf("Expected a value of type %s.", typeErr.Type))
	case errors.As(err, &syntaxErr):
		verr.Add(domain.NonFieldErrors, domain.CodeInvalid, "Malformed JSON.")
	case errors.Is(err, io.EOF):
		verr.Add(domain.NonFieldErrors, domain.CodeRequired, "Request body is required.")
	default:
		verr.Add(domain.NonFieldErrors, domain.CodeInvalid, err.Error())
	}
	return verr
}

// fieldName drops the struct name from the validator namespace ("pollRequest.title" -> "title").
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func tagCode(tag string) string {
	switch tag {
	case "required":
		return domain.CodeRequired
	case "max":
		return domain.CodeMaxLength
	default:
		return domain.CodeInvalid
	}
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	default:
		return "Invalid value."
	}
}

var registerNamesOnce sync.Once

// registerValidatorNames makes validation errors report JSON field names.
func registerValidatorNames() {
	registerNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// pathID parses an integer path parameter. Non-integers are reported as not found.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, detailResponse{Detail: "Not found."})
		return 0, false
	}
	return id, true
}
