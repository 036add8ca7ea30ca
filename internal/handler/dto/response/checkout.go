package response

import (
	"storefront-checkout/internal/domain/cart"
	"storefront-checkout/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type CheckoutResponse struct {
	UUID             uuid.UUID `json:"uuid"`
	ID               int64     `json:"id"`
	PaymentSnapToken string    `json:"payment_snap_token"`
}

func FromCheckoutResult(r *commands.CheckoutResult) *CheckoutResponse {
	return &CheckoutResponse{
		UUID:             r.UUID,
		ID:               r.OrderID,
		PaymentSnapToken: r.PaymentToken,
	}
}

type CartItemResponse struct {
	VariantID          int64  `json:"variant_id"`
	ProductID          int64  `json:"product_id"`
	ProductName        string `json:"product_name"`
	ProductImage       string `json:"product_image"`
	SKU                string `json:"variant_sku"`
	VariantDescription string `json:"variant_description"`
	UnitPrice          int64  `json:"price"`
	DiscountPrice      int64  `json:"discount_price"`
	PurchasePrice      int64  `json:"purchase_price"`
	Quantity           int    `json:"qty"`
	Available          int    `json:"stock"`
	WeightGrams        int    `json:"weight"`
	Note               string `json:"note"`
}

type CartCalculation struct {
	TotalWeight int   `json:"total_weight"`
	TotalQty    int   `json:"total_qty"`
	Subtotal    int64 `json:"subtotal"`
}

type CartCheckResponse struct {
	Cart        []CartItemResponse `json:"cart"`
	OutOfStock  []CartItemResponse `json:"out_of_stock"`
	Calculation CartCalculation    `json:"calculation"`
}

func FromCheckResult(r *cart.CheckResult) (*CartCheckResponse, error) {
	resp := &CartCheckResponse{
		Cart:       []CartItemResponse{},
		OutOfStock: []CartItemResponse{},
		Calculation: CartCalculation{
			TotalWeight: r.TotalWeight,
			Subtotal:    r.Subtotal(),
		},
	}
	if err := copier.Copy(&resp.Cart, r.Items); err != nil {
		return nil, err
	}
	if err := copier.Copy(&resp.OutOfStock, r.OutOfStock); err != nil {
		return nil, err
	}
	for _, it := range r.Items {
		resp.Calculation.TotalQty += it.Quantity
	}
	return resp, nil
}

// OutOfStockItems renders the shortage list attached to checkout errors.
func OutOfStockItems(items []cart.Item) ([]CartItemResponse, error) {
	out := []CartItemResponse{}
	if err := copier.Copy(&out, items); err != nil {
		return nil, err
	}
	return out, nil
}
