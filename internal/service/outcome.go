package service

// OutcomeKind enumerates the results of a cart mutation that are not errors.
type OutcomeKind int

const (
	OutcomeAdded OutcomeKind = iota + 1
	OutcomeQuantityExceedsStock
	OutcomeRemoved
	OutcomeItemNotFound
	OutcomeRemoteError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAdded:
		return "added"
	case OutcomeQuantityExceedsStock:
		return "quantity_exceeds_stock"
	case OutcomeRemoved:
		return "removed"
	case OutcomeItemNotFound:
		return "item_not_found"
	case OutcomeRemoteError:
		return "remote_error"
	default:
		return "unknown"
	}
}

// AddOutcome is the result of AddToCart. Available and AlreadyInCart are
// only set for OutcomeQuantityExceedsStock; Err only for OutcomeRemoteError.
type AddOutcome struct {
	Kind          OutcomeKind
	Available     int
	AlreadyInCart int
	Err           error
}

// RemoveOutcome is the result of RemoveFromCart.
type RemoveOutcome struct {
	Kind OutcomeKind
	Err  error
}
