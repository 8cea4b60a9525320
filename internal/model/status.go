package model

type Status string

const (
	StatusPendente   Status = "PENDENTE"
	StatusPreparando Status = "PREPARANDO"
	StatusPronto     Status = "PRONTO"
	StatusFinalizado Status = "FINALIZADO"
	StatusCancelado  Status = "CANCELADO"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPendente, StatusPreparando, StatusPronto, StatusFinalizado, StatusCancelado:
		return true
	}
	return false
}

// CanTransitionTo reports whether the order status machine allows moving
// from s to next. CANCELADO is reachable from any other state and is
// terminal; the forward path is PENDENTE → PREPARANDO → PRONTO →
// FINALIZADO. Cancelling an already finalized order is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	if s == StatusCancelado {
		return false
	}
	if next == StatusCancelado {
		return true
	}
	switch s {
	case StatusPendente:
		return next == StatusPreparando
	case StatusPreparando:
		return next == StatusPronto
	case StatusPronto:
		return next == StatusFinalizado
	}
	return false
}
