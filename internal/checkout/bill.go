package checkout

const (
	FreeDeliveryAbove = 500
	DeliveryFee       = 40
	TaxPercent        = 5
)

// Bill is the amount due at checkout. Only Subtotal is stored on the order.
type Bill struct {
	Subtotal    int `json:"subtotal"`
	DeliveryFee int `json:"delivery_fee"`
	Taxes       int `json:"taxes"`
	GrandTotal  int `json:"grand_total"`
}

// ComputeBill adds delivery and tax to a cart subtotal. Delivery is free
// strictly above FreeDeliveryAbove; tax is TaxPercent rounded half up.
func ComputeBill(subtotal int) Bill {
	fee := DeliveryFee
	if subtotal > FreeDeliveryAbove {
		fee = 0
	}
	taxes := roundPercent(subtotal, TaxPercent)
	return Bill{
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Taxes:       taxes,
		GrandTotal:  subtotal + fee + taxes,
	}
}

func roundPercent(amount, pct int) int {
	if amount < 0 {
		return -roundPercent(-amount, pct)
	}
	return (amount*pct + 50) / 100
}
