package entity

import "time"

// Client representa un cliente de la farmacia. Se resuelve (o crea) por nombre
// al completar una venta.
type Client struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
