package inventory

// Outcome tells a caller how far a reservation got.
type Outcome int

const (
	// Rejected: nothing was changed.
	Rejected Outcome = iota
	// Confirmed: the ledger and the store both hold the new stock.
	Confirmed
	// ConfirmedLocalOnly: the ledger holds the new stock but the store write failed.
	ConfirmedLocalOnly
)

func (o Outcome) String() string {
	switch o {
	case Rejected:
		return "rejected"
	case Confirmed:
		return "confirmed"
	case ConfirmedLocalOnly:
		return "confirmed_local_only"
	}
	return "unknown"
}

// OK reports whether the purchase may proceed.
func (o Outcome) OK() bool { return o == Confirmed || o == ConfirmedLocalOnly }

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

type Reservation struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Outcome   Outcome `json:"outcome"`
	// Remaining is the believed stock after the call.
	Remaining int `json:"remaining"`
	// Err is the rejection reason, or the store failure for ConfirmedLocalOnly.
	Err error `json:"-"`
}
