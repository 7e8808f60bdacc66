package orders

const (
	TopicOrderReserved        = "order.reserved"
	TopicOrderPaid            = "order.paid"
	TopicReservationExpired   = "reservation.expired"
	TopicProductStatusChanged = "product.status.changed"
)

// Partition key = id agregado (pedido o producto), mantiene el orden por agregado.
func PartitionKey(id string) []byte { return []byte(id) }
