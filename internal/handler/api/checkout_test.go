//go:build unit

package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	nethttptest "net/http/httptest"
	"strings"
	"testing"

	"storefront-checkout/internal/domain/cart"
	"storefront-checkout/internal/handler/api"
	resdto "storefront-checkout/internal/handler/dto/response"
	"storefront-checkout/internal/handler/httperr"
	"storefront-checkout/internal/handler/middleware"
	"storefront-checkout/internal/usecase/commands"
	"storefront-checkout/tests/common/builder"
	"storefront-checkout/tests/common/httptest"
	commandsmock "storefront-checkout/tests/mock/commands"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type CheckoutHandlerTestSuite struct {
	suite.Suite
	router       *gin.Engine
	mockCtrl     *gomock.Controller
	mockCheckout *commandsmock.MockCheckoutCommands
	mockCart     *commandsmock.MockCartCommands
	handler      *api.CheckoutHandler
	userID       uuid.UUID
}

func (s *CheckoutHandlerTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	api.RegisterJSONFieldNames()
}

func (s *CheckoutHandlerTestSuite) SetupTest() {
	s.router = gin.New()
	s.userID = uuid.New()

	s.mockCtrl = gomock.NewController(s.T())
	s.mockCheckout = commandsmock.NewMockCheckoutCommands(s.mockCtrl)
	s.mockCart = commandsmock.NewMockCartCommands(s.mockCtrl)
	s.handler = api.NewCheckoutHandler(s.mockCheckout, s.mockCart)

	s.router.POST("/checkout", mockAuth(s.userID), s.handler.Checkout)
	s.router.POST("/carts/check", mockAuth(s.userID), s.handler.CheckCart)
}

func (s *CheckoutHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestCheckoutHandlerSuite(t *testing.T) {
	suite.Run(t, new(CheckoutHandlerTestSuite))
}

// mockAuth stands in for the bearer middleware.
func mockAuth(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "Unauthorized"}})
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
}

func performWithHeaders(router *gin.Engine, method, path string, body any, headers map[string]string) *nethttptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := nethttptest.NewRequest(method, path, strings.NewReader(string(raw)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer token")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := nethttptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeErrorBody(s *suite.Suite, rec *nethttptest.ResponseRecorder) httperr.Response {
	var body httperr.Response
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

// ================================================================================
// TestCheckout
// ================================================================================

func (s *CheckoutHandlerTestSuite) TestCheckout() {
	url := "/checkout"
	b := builder.NewCheckoutBuilder()
	reqBody := b.BuildRequestDTO()
	result := b.BuildResult()

	s.Run("success: returns 201 with uuid, id and payment token", func() {
		s.mockCheckout.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, in commands.CheckoutInput) (*commands.CheckoutResult, error) {
				s.Equal(s.userID, in.UserID)
				s.Nil(in.IdempotencyKey)
				s.Equal(int64(7), in.ShippingAddressID)
				s.True(in.SameAsShipping)
				s.Equal("jne", in.Courier.Carrier)
				s.Equal([]cart.Line{{VariantID: 10, Quantity: 2, Note: "gift wrap"}, {VariantID: 11, Quantity: 1}}, in.Lines)
				s.Nil(in.VoucherID)
				return result, nil
			}).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")

		var got resdto.CheckoutResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusCreated, &got)
		want := resdto.CheckoutResponse{UUID: b.OrderUUID, ID: b.OrderID, PaymentSnapToken: b.PaymentToken}
		if diff := cmp.Diff(want, got); diff != "" {
			s.Failf("response mismatch", "(-want +got):\n%s", diff)
		}
		s.Empty(rec.Header().Get(middleware.ReplayedHeader))
	})

	s.Run("success: idempotency key is forwarded and replay is flagged", func() {
		key := uuid.New()
		replayed := *result
		replayed.Replayed = true
		s.mockCheckout.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, in commands.CheckoutInput) (*commands.CheckoutResult, error) {
				s.Require().NotNil(in.IdempotencyKey)
				s.Equal(key, *in.IdempotencyKey)
				return &replayed, nil
			}).Times(1)

		rec := performWithHeaders(s.router, http.MethodPost, url, reqBody, map[string]string{"Idempotency-Key": key.String()})
		s.Equal(http.StatusCreated, rec.Code)
		httptest.AssertHeaders(s.T(), rec, map[string]string{middleware.ReplayedHeader: "true"})
	})

	s.Run("success: positive voucher id is forwarded", func() {
		voucherID := int64(3)
		withVoucher := builder.NewCheckoutBuilder().With(func(cb *builder.CheckoutBuilder) { cb.VoucherID = &voucherID }).BuildRequestDTO()
		s.mockCheckout.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, in commands.CheckoutInput) (*commands.CheckoutResult, error) {
				s.Require().NotNil(in.VoucherID)
				s.Equal(voucherID, *in.VoucherID)
				return result, nil
			}).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, withVoucher, "bearer-token")
		s.Equal(http.StatusCreated, rec.Code)
	})

	s.Run("error: 400 for malformed idempotency key", func() {
		rec := performWithHeaders(s.router, http.MethodPost, url, reqBody, map[string]string{"Idempotency-Key": "not-a-uuid"})
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Idempotency-Key")
		body := decodeErrorBody(&s.Suite, rec)
		s.Equal([]httperr.FieldError{{Field: commands.FieldIdempotency, Message: "must be a UUID"}}, body.Errors)
	})

	s.Run("error: 401 Unauthorized when unauthenticated", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusUnauthorized, "Unauthorized")
	})

	s.Run("error: 422 on binding failures names the json path", func() {
		testCases := []struct {
			name   string
			mutate func(*builder.CheckoutBuilder)
			field  string
		}{
			{
				name:   "missing shipping address",
				mutate: func(cb *builder.CheckoutBuilder) { cb.ShippingAddressID = 0 },
				field:  "data.shipping.address_id",
			},
			{
				name:   "zero quantity",
				mutate: func(cb *builder.CheckoutBuilder) { cb.Lines[0].Qty = 0 },
				field:  "data.product[0].qty",
			},
			{
				name:   "quantity above the limit",
				mutate: func(cb *builder.CheckoutBuilder) { cb.Lines[0].Qty = cart.MaxQuantity + 1 },
				field:  "data.product[0].qty",
			},
			{
				name:   "missing courier service",
				mutate: func(cb *builder.CheckoutBuilder) { cb.Courier.Service = "" },
				field:  "data.courier.service",
			},
			{
				name:   "note too long",
				mutate: func(cb *builder.CheckoutBuilder) { cb.Lines[1].Note = strings.Repeat("n", 501) },
				field:  "data.product[1].note",
			},
		}

		for _, tc := range testCases {
			s.Run(tc.name, func() {
				body := builder.NewCheckoutBuilder().With(tc.mutate).BuildRequestDTO()
				rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, body, "bearer-token")
				httptest.AssertErrorResponse(s.T(), rec, http.StatusUnprocessableEntity, "Invalid checkout request")
				resp := decodeErrorBody(&s.Suite, rec)
				s.Require().NotEmpty(resp.Errors)
				s.Equal(tc.field, resp.Errors[0].Field)
			})
		}
	})

	s.Run("error: malformed json is 422 on body", func() {
		req := nethttptest.NewRequest(http.MethodPost, url, strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer token")
		rec := nethttptest.NewRecorder()
		s.router.ServeHTTP(rec, req)

		s.Equal(http.StatusUnprocessableEntity, rec.Code)
		resp := decodeErrorBody(&s.Suite, rec)
		s.Equal([]httperr.FieldError{{Field: "body", Message: "Malformed JSON payload"}}, resp.Errors)
	})

	s.Run("error: maps stage errors to status and field", func() {
		shortage := commands.NewStageError(commands.FieldOutOfStock, commands.ErrOutOfStock, "Item out of stock", "Some items are out of stock", nil)
		shortage.OutOfStock = []cart.Item{{VariantID: 10, ProductName: "Batik Shirt", Quantity: 2, Available: 1}}

		testCases := []struct {
			name           string
			err            error
			expectedStatus int
			expectedMsg    string
			expectedField  string
		}{
			{
				name:           "foreign shipping address",
				err:            commands.NewStageError(commands.FieldShippingAddress, commands.ErrNotFound, "Shipping address not found", "Shipping address not found", nil),
				expectedStatus: http.StatusUnprocessableEntity,
				expectedMsg:    "Shipping address not found",
				expectedField:  commands.FieldShippingAddress,
			},
			{
				name:           "empty cart",
				err:            commands.NewStageError(commands.FieldCartEmpty, commands.ErrValidation, "Cart empty", "Cart is empty, please add some products", nil),
				expectedStatus: http.StatusUnprocessableEntity,
				expectedMsg:    "Cart empty",
				expectedField:  commands.FieldCartEmpty,
			},
			{
				name:           "carrier unavailable",
				err:            commands.NewStageError(commands.FieldRateLookup, commands.ErrExternalService, "Courier cost check failed", "Invalid key", nil),
				expectedStatus: http.StatusUnprocessableEntity,
				expectedMsg:    "Courier cost check failed",
				expectedField:  commands.FieldRateLookup,
			},
			{
				name:           "out of stock",
				err:            shortage,
				expectedStatus: http.StatusUnprocessableEntity,
				expectedMsg:    "Item out of stock",
				expectedField:  commands.FieldOutOfStock,
			},
			{
				name:           "idempotency key reused",
				err:            commands.NewStageError(commands.FieldIdempotency, commands.ErrIdempotencyMismatch, "Idempotency key reused", "different payload", nil),
				expectedStatus: http.StatusConflict,
				expectedMsg:    "Idempotency key reused",
				expectedField:  commands.FieldIdempotency,
			},
			{
				name:           "persistence failure",
				err:            commands.NewStageError(commands.FieldOrder, commands.ErrPersistence, "Order insertion failed", "Order creation failed", errors.New("db down")),
				expectedStatus: http.StatusInternalServerError,
				expectedMsg:    "Order insertion failed",
				expectedField:  commands.FieldOrder,
			},
		}

		for _, tc := range testCases {
			s.Run(tc.name, func() {
				s.mockCheckout.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).Return(nil, tc.err).Times(1)

				rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")
				httptest.AssertErrorResponse(s.T(), rec, tc.expectedStatus, tc.expectedMsg)
				resp := decodeErrorBody(&s.Suite, rec)
				s.Require().Len(resp.Errors, 1)
				s.Equal(tc.expectedField, resp.Errors[0].Field)
			})
		}
	})

	s.Run("error: out of stock body lists the short items", func() {
		shortage := commands.NewStageError(commands.FieldOutOfStock, commands.ErrOutOfStock, "Item out of stock", "Some items are out of stock", nil)
		shortage.OutOfStock = []cart.Item{{VariantID: 10, ProductName: "Batik Shirt", Quantity: 2, Available: 1}}
		s.mockCheckout.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).Return(nil, shortage).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")
		s.Equal(http.StatusUnprocessableEntity, rec.Code)

		var body struct {
			OutOfStock []resdto.CartItemResponse `json:"out_of_stock"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		want := []resdto.CartItemResponse{{VariantID: 10, ProductName: "Batik Shirt", Quantity: 2, Available: 1}}
		if diff := cmp.Diff(want, body.OutOfStock); diff != "" {
			s.Failf("out_of_stock mismatch", "(-want +got):\n%s", diff)
		}
	})

	s.Run("error: unclassified failure is 500", func() {
		s.mockCheckout.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).Return(nil, errors.New("boom")).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusInternalServerError, "Internal server error")
	})
}

// ================================================================================
// TestCheckCart
// ================================================================================

func (s *CheckoutHandlerTestSuite) TestCheckCart() {
	url := "/carts/check"
	reqBody := map[string]any{
		"data": []map[string]any{
			{"variant_id": 10, "qty": 12},
			{"variant_id": 10, "qty": 10, "note": "blue"},
		},
	}

	s.Run("success: returns aggregated cart", func() {
		result := &cart.CheckResult{
			Items: []cart.Item{
				{VariantID: 10, ProductID: 1, ProductName: "Batik Shirt", UnitPrice: 50000, PurchasePrice: 45000, Quantity: 22, Available: 30, WeightGrams: 200, Note: "blue"},
			},
			TotalWeight: 4400,
		}
		s.mockCart.EXPECT().Check(gomock.Any(), []cart.Line{
			{VariantID: 10, Quantity: 12},
			{VariantID: 10, Quantity: 10, Note: "blue"},
		}).Return(result, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")

		var got resdto.CartCheckResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &got)
		want := resdto.CartCheckResponse{
			Cart: []resdto.CartItemResponse{
				{VariantID: 10, ProductID: 1, ProductName: "Batik Shirt", UnitPrice: 50000, PurchasePrice: 45000, Quantity: 22, Available: 30, WeightGrams: 200, Note: "blue"},
			},
			OutOfStock:  []resdto.CartItemResponse{},
			Calculation: resdto.CartCalculation{TotalWeight: 4400, TotalQty: 22, Subtotal: 990000},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			s.Failf("response mismatch", "(-want +got):\n%s", diff)
		}
	})

	s.Run("error: 422 with product field when lines are invalid", func() {
		s.mockCart.EXPECT().Check(gomock.Any(), gomock.Any()).
			Return(nil, commands.NewStageError(commands.FieldProduct, commands.ErrValidation, "Invalid cart data", "bad line", nil)).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusUnprocessableEntity, "Cart processing failed")
		resp := decodeErrorBody(&s.Suite, rec)
		s.Equal([]httperr.FieldError{{Field: commands.FieldProduct, Message: "Error when processing cart data"}}, resp.Errors)
	})

	s.Run("error: 422 on binding failures", func() {
		bad := map[string]any{"data": []map[string]any{{"variant_id": 10, "qty": 0}}}
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, bad, "bearer-token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusUnprocessableEntity, "Invalid cart request")
		resp := decodeErrorBody(&s.Suite, rec)
		s.Require().NotEmpty(resp.Errors)
		s.Equal("data[0].qty", resp.Errors[0].Field)
	})

	s.Run("error: persistence failure is 500", func() {
		s.mockCart.EXPECT().Check(gomock.Any(), gomock.Any()).Return(nil, commands.ErrPersistence).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")
		s.Equal(http.StatusInternalServerError, rec.Code)
	})
}
