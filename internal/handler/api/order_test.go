//go:build unit

package api_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"storefront-checkout/internal/handler/api"
	resdto "storefront-checkout/internal/handler/dto/response"
	"storefront-checkout/internal/pkg/errs"
	"storefront-checkout/internal/usecase/queries"
	"storefront-checkout/tests/common/builder"
	"storefront-checkout/tests/common/httptest"
	queriesmock "storefront-checkout/tests/mock/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type OrderHandlerTestSuite struct {
	suite.Suite
	router      *gin.Engine
	mockCtrl    *gomock.Controller
	mockQueries *queriesmock.MockOrderQueries
	userID      uuid.UUID
}

func (s *OrderHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()
	s.userID = uuid.New()

	s.mockCtrl = gomock.NewController(s.T())
	s.mockQueries = queriesmock.NewMockOrderQueries(s.mockCtrl)
	h := api.NewOrderHandler(s.mockQueries)

	s.router.GET("/orders/:uuid", mockAuth(s.userID), h.Get)
	s.router.GET("/vouchers/history", mockAuth(s.userID), h.VoucherHistory)
}

func (s *OrderHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestOrderHandlerSuite(t *testing.T) {
	suite.Run(t, new(OrderHandlerTestSuite))
}

// ================================================================================
// TestGet
// ================================================================================

func (s *OrderHandlerTestSuite) TestGet() {
	b := builder.NewCheckoutBuilder().With(func(cb *builder.CheckoutBuilder) { cb.UserID = s.userID })
	view := b.BuildOrderView()
	url := "/orders/" + view.UUID.String()

	s.Run("success: returns 200 with order and items", func() {
		s.mockQueries.EXPECT().GetByUUID(gomock.Any(), s.userID, view.UUID).Return(view, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "bearer-token")

		var got resdto.OrderResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &got)
		s.Equal(view.OrderNumber, got.OrderNumber)
		s.Equal(view.GrandTotal, got.GrandTotal)
		s.Equal(view.Shipping, got.Shipping)
		s.Require().Len(got.Items, 2)
		s.Equal(view.Items[0].Note, got.Items[0].Note)
		s.True(view.CreatedAt.Equal(got.CreatedAt))
	})

	s.Run("error: 400 for invalid UUID", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/orders/not-a-uuid", nil, "bearer-token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid order id")
	})

	s.Run("error: maps query errors to proper statuses", func() {
		testCases := []struct {
			name           string
			queriesError   error
			expectedStatus int
			expectedMsg    string
		}{
			{name: "order not found", queriesError: queries.ErrOrderNotFound, expectedStatus: http.StatusNotFound, expectedMsg: "Order not found"},
			{name: "wrapped not found", queriesError: errs.Wrap(queries.ErrOrderNotFound, "lookup"), expectedStatus: http.StatusNotFound, expectedMsg: "Order not found"},
			{name: "database error", queriesError: errors.New("database error"), expectedStatus: http.StatusInternalServerError, expectedMsg: "Internal server error"},
		}

		for _, tc := range testCases {
			s.Run(tc.name, func() {
				s.mockQueries.EXPECT().GetByUUID(gomock.Any(), s.userID, view.UUID).Return(nil, tc.queriesError).Times(1)

				rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "bearer-token")
				httptest.AssertErrorResponse(s.T(), rec, tc.expectedStatus, tc.expectedMsg)
			})
		}
	})

	s.Run("error: 401 Unauthorized when unauthenticated", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusUnauthorized, "Unauthorized")
	})
}

// ================================================================================
// TestVoucherHistory
// ================================================================================

func (s *OrderHandlerTestSuite) TestVoucherHistory() {
	created := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	orderUUID := uuid.New()
	views := []*queries.VoucherRedemptionView{
		{ID: 9, VoucherID: 3, VoucherCode: "HEMAT10", OrderID: 42, OrderUUID: orderUUID, OrderNumber: "INV/20260305/000042", CreatedAt: created},
	}

	s.Run("success: first page with next cursor", func() {
		next := &queries.Cursor{After: queries.EncodeAfterCursor(created, 9)}
		s.mockQueries.EXPECT().ListVoucherHistory(gomock.Any(), s.userID, (*queries.Cursor)(nil), 0).
			Return(views, next, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/vouchers/history", nil, "bearer-token")

		var got resdto.VoucherHistoryResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &got)
		want := resdto.VoucherHistoryResponse{
			Items: []resdto.VoucherHistoryItem{
				{ID: 9, VoucherID: 3, VoucherCode: "HEMAT10", OrderID: 42, OrderUUID: orderUUID, OrderNumber: "INV/20260305/000042", CreatedAt: created},
			},
			NextCursor: next.After,
		}
		if diff := cmp.Diff(want, got); diff != "" {
			s.Failf("response mismatch", "(-want +got):\n%s", diff)
		}
	})

	s.Run("success: cursor and limit are forwarded", func() {
		after := queries.EncodeAfterCursor(created, 9)
		s.mockQueries.EXPECT().ListVoucherHistory(gomock.Any(), s.userID, &queries.Cursor{After: after}, 5).
			Return([]*queries.VoucherRedemptionView{}, nil, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/vouchers/history?limit=5&after="+after, nil, "bearer-token")

		var got resdto.VoucherHistoryResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &got)
		s.Empty(got.Items)
		s.Empty(got.NextCursor)
	})

	s.Run("error: 400 for non-numeric limit", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/vouchers/history?limit=abc", nil, "bearer-token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid limit")
	})

	s.Run("error: 400 for malformed cursor", func() {
		s.mockQueries.EXPECT().ListVoucherHistory(gomock.Any(), s.userID, gomock.Any(), 0).
			Return(nil, nil, errs.Mark(errors.New("bad"), queries.ErrInvalidCursor)).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/vouchers/history?after=zzz", nil, "bearer-token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid cursor")
	})

	s.Run("error: 500 on store failure", func() {
		s.mockQueries.EXPECT().ListVoucherHistory(gomock.Any(), s.userID, gomock.Any(), 0).
			Return(nil, nil, errors.New("db down")).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/vouchers/history", nil, "bearer-token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusInternalServerError, "Internal server error")
	})
}
