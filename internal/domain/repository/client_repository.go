package repository

import "github.com/jhoicas/farmacia-pos/internal/domain/entity"

// ClientRepository define el puerto de persistencia para Client.
type ClientRepository interface {
	Create(c *entity.Client) error
	GetByID(id string) (*entity.Client, error)
	GetByName(name string) (*entity.Client, error)
}
