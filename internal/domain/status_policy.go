package domain

// CanTransitionOrder reports whether an order may move between statuses.
// Every move between known statuses is allowed; tighten here, not in callers.
func CanTransitionOrder(from, to OrderStatus) bool {
	_, errFrom := ParseOrderStatus(string(from))
	_, errTo := ParseOrderStatus(string(to))
	return errFrom == nil && errTo == nil
}

// CanTransitionPayment is the payment status counterpart of CanTransitionOrder.
func CanTransitionPayment(from, to PaymentStatus) bool {
	_, errFrom := ParsePaymentStatus(string(from))
	_, errTo := ParsePaymentStatus(string(to))
	return errFrom == nil && errTo == nil
}

// ApplyStatusUpdate sets whichever statuses are given, consulting the
// transition policy for each. Passing neither is a no-op.
func (o *Order) ApplyStatusUpdate(orderStatus *OrderStatus, paymentStatus *PaymentStatus) error {
	if orderStatus != nil && !CanTransitionOrder(o.OrderStatus, *orderStatus) {
		return ErrIllegalTransition
	}
	if paymentStatus != nil && !CanTransitionPayment(o.PaymentStatus, *paymentStatus) {
		return ErrIllegalTransition
	}
	if orderStatus != nil {
		o.OrderStatus = *orderStatus
	}
	if paymentStatus != nil {
		o.PaymentStatus = *paymentStatus
	}
	return nil
}
