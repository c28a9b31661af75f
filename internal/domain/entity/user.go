package entity

import "time"

// Roles válidos para User.
const (
	RoleAdmin    = "admin"
	RoleOperador = "operador" // operador fiscal: timbra y cancela
	RoleERP      = "erp"      // cuenta de servicio del ERP (hooks de submit)
)

// User usuario del sistema (operador humano o cuenta de servicio).
type User struct {
	ID           string
	CompanyID    string
	Email        string
	PasswordHash string // bcrypt hash, nunca plano en dominio después de persistir
	Name         string
	Role         string // ver constantes Role*
	Status       string // active, inactive, suspended
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
