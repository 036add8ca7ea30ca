package httperr

import (
	"github.com/gin-gonic/gin"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Response struct {
	Status int `json:"-"`
	Error  struct {
		Message string `json:"message"`
	} `json:"error"`
	Errors     []FieldError `json:"errors,omitempty"`
	OutOfStock any          `json:"out_of_stock,omitempty"`
	Detail     any          `json:"detail,omitempty"`
}

// preserves original error for future monitoring
func AbortWithError(c *gin.Context, status int, err error, msg string, detail any) {
	resp := Response{Status: status, Detail: detail}
	resp.Error.Message = msg
	Abort(c, err, resp)
}

// AbortWithFields attributes the failure to request fields or checkout stages.
func AbortWithFields(c *gin.Context, status int, err error, msg string, fields ...FieldError) {
	resp := Response{Status: status, Errors: fields}
	resp.Error.Message = msg
	Abort(c, err, resp)
}

func Abort(c *gin.Context, err error, resp Response) {
	if err == nil {
		panic("httperr.Abort: err cannot be nil")
	}
	_ = c.Error(gin.Error{
		Err:  err,
		Type: gin.ErrorTypePublic,
		Meta: resp,
	})
	c.AbortWithStatusJSON(resp.Status, resp)
}
