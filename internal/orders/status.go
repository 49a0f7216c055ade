package orders

// Status is the tag of a derived tracking event. Order matters: each status
// can only appear after the ones before it.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
)

var rank = map[Status]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusShipped:    2,
	StatusDelivered:  3,
}

// Precedes reports whether from comes strictly before to in the shipment lifecycle.
func Precedes(from, to Status) bool {
	a, ok1 := rank[from]
	b, ok2 := rank[to]
	return ok1 && ok2 && a < b
}
