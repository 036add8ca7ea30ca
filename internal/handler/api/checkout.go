package api

import (
	"errors"
	"log/slog"
	"net/http"

	reqdto "storefront-checkout/internal/handler/dto/request"
	resdto "storefront-checkout/internal/handler/dto/response"
	"storefront-checkout/internal/handler/httperr"
	"storefront-checkout/internal/handler/middleware"
	"storefront-checkout/internal/usecase/commands"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var (
	errMissingUser         = errors.New("authenticated user missing from context")
	errInvalidIdempotency  = errors.New("invalid idempotency key format")
	errInvalidRequestInput = errors.New("invalid request payload")
)

type CheckoutHandler struct {
	checkout commands.CheckoutCommands
	cart     commands.CartCommands
}

func NewCheckoutHandler(checkout commands.CheckoutCommands, cart commands.CartCommands) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, cart: cart}
}

// @Summary Checkout
// @Description Reserve stock, create the order and issue a payment token
// @Tags checkout
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Idempotency key (UUID)"
// @Param request body reqdto.CheckoutRequest true "Checkout request"
// @Success 201 {object} resdto.CheckoutResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Failure 500 {object} httperr.Response
// @Router /checkout [post]
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusInternalServerError, errMissingUser, "Internal server error", nil)
		return
	}

	key, err := idempotencyKey(c)
	if err != nil {
		httperr.AbortWithFields(c, http.StatusBadRequest, err, "Invalid Idempotency-Key header",
			httperr.FieldError{Field: commands.FieldIdempotency, Message: "must be a UUID"})
		return
	}

	var req reqdto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithFields(c, http.StatusUnprocessableEntity, errors.Join(errInvalidRequestInput, err),
			"Invalid checkout request", bindingFields(err)...)
		return
	}

	result, err := h.checkout.PlaceOrder(c.Request.Context(), req.ToInput(userID, key))
	if err != nil {
		abortStage(c, err)
		return
	}

	if result.Replayed {
		c.Header(middleware.ReplayedHeader, "true")
		slog.Info("checkout replayed", "order_id", result.OrderID, "user_id", userID.String())
	}
	c.JSON(http.StatusCreated, resdto.FromCheckoutResult(result))
}

// @Summary Check cart
// @Description Aggregate cart lines against current stock without side effects
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.CartCheckRequest true "Cart lines"
// @Success 200 {object} resdto.CartCheckResponse
// @Failure 422 {object} httperr.Response
// @Router /carts/check [post]
func (h *CheckoutHandler) CheckCart(c *gin.Context) {
	var req reqdto.CartCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithFields(c, http.StatusUnprocessableEntity, errors.Join(errInvalidRequestInput, err),
			"Invalid cart request", bindingFields(err)...)
		return
	}

	result, err := h.cart.Check(c.Request.Context(), reqdto.ToCartLines(req.Data))
	if err != nil {
		status := statusFor(err)
		httperr.AbortWithFields(c, status, err, "Cart processing failed",
			httperr.FieldError{Field: commands.FieldProduct, Message: "Error when processing cart data"})
		return
	}

	resp, err := resdto.FromCheckResult(result)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// A missing header disables idempotency; a malformed one is rejected.
func idempotencyKey(c *gin.Context) (*uuid.UUID, error) {
	raw := c.GetHeader("Idempotency-Key")
	if raw == "" {
		return nil, nil
	}
	key, err := uuid.Parse(raw)
	if err != nil {
		return nil, errors.Join(errInvalidIdempotency, err)
	}
	return &key, nil
}
