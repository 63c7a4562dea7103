package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/marketlevy/backend/internal/domain/levy"
	"github.com/marketlevy/backend/internal/infrastructure/logger"
	"github.com/marketlevy/backend/internal/interfaces/http/dto"
)

// Levy vocabulary tags. Each accepts what the matching domain parser accepts,
// so "Monthly", "monthly" and "MONTHLY" all bind.
const (
	TagOccupancy     = "occupancy"
	TagPeriod        = "levy_period"
	TagPaymentMethod = "payment_method"
)

var levyTags = map[string]struct {
	valid   func(string) bool
	message string
}{
	TagOccupancy: {
		valid:   func(s string) bool { _, ok := levy.ParseOccupancyType(s); return ok },
		message: "Unknown occupancy type",
	},
	TagPeriod: {
		valid:   func(s string) bool { _, ok := levy.ParsePaymentPeriod(s); return ok },
		message: "Unknown payment period",
	},
	TagPaymentMethod: {
		valid:   func(s string) bool { _, ok := levy.ParsePaymentMethod(s); return ok },
		message: "Unknown payment method",
	},
}

var setupOnce sync.Once

// SetupValidator makes validation errors report JSON field names and
// registers the levy vocabulary tags. Safe to call more than once.
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)
		for tag, rule := range levyTags {
			valid := rule.valid
			_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
				return valid(fl.Field().String())
			})
		}
	})
}

func jsonFieldName(fld reflect.StructField) string {
	for _, key := range []string{"json", "form", "uri"} {
		name, _, _ := strings.Cut(fld.Tag.Get(key), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// FormatValidationErrors turns validator errors into per-field details
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details = make([]dto.ValidationDetail, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			details = append(details, dto.ValidationDetail{Field: fe.Field(), Message: fieldMessage(fe)})
		}
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError answers a failed bind. Field rule violations,
// oversized bodies and malformed JSON are told apart.
func HandleValidationError(c *gin.Context, err error) {
	requestID := c.GetString(logger.GinRequestIDKey)

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		c.AbortWithStatusJSON(dto.GetHTTPStatus(dto.ErrCodeValidation), FormatValidationErrors(err, requestID))
		return
	}

	code, msg := dto.ErrCodeInvalidJSON, "Request body is not valid JSON"
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		code, msg = dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size"
	}
	resp := dto.NewErrorResponse(code, msg)
	resp.Error.RequestID = requestID
	c.AbortWithStatusJSON(dto.GetHTTPStatus(code), resp)
}

func fieldMessage(fe validator.FieldError) string {
	if rule, ok := levyTags[fe.Tag()]; ok {
		return rule.message
	}
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "uuid":
		return "Invalid UUID format"
	case "max":
		if fe.Kind() == reflect.String {
			return "Must be at most " + fe.Param() + " characters"
		}
		return "Must be at most " + fe.Param()
	default:
		return "Invalid value"
	}
}
