package orders

type Status string

const (
	StatusReserved  Status = "RESERVADO"
	StatusPaid      Status = "PAGADO"
	StatusCancelled Status = "CANCELADO"
)

var validNext = map[Status]map[Status]bool{
	StatusReserved:  {StatusPaid: true, StatusCancelled: true},
	StatusPaid:      {},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVA"
	ReservationConfirmed ReservationStatus = "CONFIRMADA"
	ReservationExpired   ReservationStatus = "EXPIRADA"
)

var validReservationNext = map[ReservationStatus]map[ReservationStatus]bool{
	ReservationActive:    {ReservationConfirmed: true, ReservationExpired: true},
	ReservationConfirmed: {},
	ReservationExpired:   {},
}

func CanTransitionReservation(from, to ReservationStatus) bool {
	return validReservationNext[from][to]
}

type ProductStatus string

const (
	ProductActive   ProductStatus = "activo"
	ProductInactive ProductStatus = "inactivo"
)

func (s ProductStatus) Valid() bool {
	return s == ProductActive || s == ProductInactive
}
