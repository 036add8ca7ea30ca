package api

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	resdto "storefront-checkout/internal/handler/dto/response"
	"storefront-checkout/internal/handler/httperr"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/commands"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func statusFor(err error) int {
	switch {
	case errs.Is(err, commands.ErrIdempotencyInProgress), errs.Is(err, commands.ErrIdempotencyMismatch):
		return http.StatusConflict
	case errs.Is(err, commands.ErrValidation),
		errs.Is(err, commands.ErrNotFound),
		errs.Is(err, commands.ErrOutOfStock),
		errs.Is(err, commands.ErrExternalService):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// abortStage renders a checkout failure as {error, errors[{field,message}], out_of_stock}.
func abortStage(c *gin.Context, err error) {
	var se *commands.StageError
	if !errors.As(err, &se) {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	resp := httperr.Response{
		Status: statusFor(err),
		Errors: []httperr.FieldError{{Field: se.Stage, Message: se.Detail}},
	}
	resp.Error.Message = se.Message
	if len(se.OutOfStock) > 0 {
		items, cerr := resdto.OutOfStockItems(se.OutOfStock)
		if cerr != nil {
			httperr.AbortWithError(c, http.StatusInternalServerError, errs.Wrap(cerr, "render out of stock items"), "Internal server error", nil)
			return
		}
		resp.OutOfStock = items
	}
	httperr.Abort(c, err, resp)
}

// bindingFields turns validator failures into field errors keyed by JSON path.
func bindingFields(err error) []httperr.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []httperr.FieldError{{Field: "body", Message: "Malformed JSON payload"}}
	}
	out := make([]httperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, httperr.FieldError{
			Field:   jsonPath(fe.Namespace()),
			Message: "failed on " + fe.Tag(),
		})
	}
	return out
}

// jsonPath drops the root struct name: CheckoutRequest.data.product[0].qty -> data.product[0].qty
func jsonPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// RegisterJSONFieldNames makes validator namespaces use JSON names.
func RegisterJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}
