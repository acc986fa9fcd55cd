package models

import (
	"time"
)

// Connection statuses. pending is the only non-terminal status.
const (
	ConnectionPending  = "pending"
	ConnectionApproved = "approved"
	ConnectionRejected = "rejected"
)

// Legal-entity types accepted in an application
const (
	PessoaFisica   = "pessoa_fisica"
	PessoaJuridica = "pessoa_juridica"
)

// LogisticsModes lists the accepted values for ApplicationData.ModosLogistica
var LogisticsModes = []string{"retirada", "transportadora_propria", "transportadora_terceirizada", "correios"}

// BrazilianStates holds every valid UF code
var BrazilianStates = []string{
	"AC", "AL", "AP", "AM", "BA", "CE", "DF", "ES", "GO", "MA", "MT", "MS", "MG", "PA",
	"PB", "PR", "PE", "PI", "RJ", "RN", "RS", "RO", "RR", "SC", "SP", "SE", "TO",
}

// IsBrazilianState reports whether uf is a valid state code
func IsBrazilianState(uf string) bool {
	for _, s := range BrazilianStates {
		if s == uf {
			return true
		}
	}
	return false
}

// PostalAddress is a full Brazilian postal address
type PostalAddress struct {
	CEP         string `json:"cep" validate:"required,cep"`
	Logradouro  string `json:"logradouro" validate:"required"`
	Numero      string `json:"numero" validate:"required"`
	Complemento string `json:"complemento,omitempty"`
	Bairro      string `json:"bairro" validate:"required"`
	Cidade      string `json:"cidade" validate:"required"`
	Estado      string `json:"estado" validate:"required,uf"`
}

// SocialLinks are the optional contact channels a specifier declares
type SocialLinks struct {
	Instagram string `json:"instagram,omitempty"`
	Site      string `json:"site,omitempty" validate:"omitempty,url"`
	WhatsApp  string `json:"whatsapp,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
}

// ApplicationData is the business-profile snapshot submitted with an application.
// Unknown fields go to Extras instead of widening the record.
type ApplicationData struct {
	TipoPessoa     string            `json:"tipo_pessoa" validate:"required,oneof=pessoa_fisica pessoa_juridica"`
	Documento      string            `json:"documento" validate:"required"`
	RazaoSocial    string            `json:"razao_social,omitempty"`
	ModosLogistica []string          `json:"modos_logistica" validate:"required,min=1,dive,oneof=retirada transportadora_propria transportadora_terceirizada correios"`
	EstadosAtuacao []string          `json:"estados_atuacao" validate:"required,min=1,dive,uf"`
	RedesSociais   SocialLinks       `json:"redes_sociais"`
	Endereco       PostalAddress     `json:"endereco"`
	Extras         map[string]string `json:"extras,omitempty"`
}

// Connection is the credentialing relationship between one specifier and one factory
type Connection struct {
	ID                uint             `gorm:"primaryKey" json:"id"`
	SpecifierID       uint             `gorm:"not null;index" json:"specifier_id"`
	Specifier         User             `gorm:"foreignKey:SpecifierID" json:"specifier"`
	FactoryID         uint             `gorm:"not null;index" json:"factory_id"`
	Factory           User             `gorm:"foreignKey:FactoryID" json:"factory"`
	Status            string           `gorm:"not null;default:'pending';index" json:"status"` // pending, approved, rejected
	ApplicationData   ApplicationData  `gorm:"type:text;serializer:json" json:"application_data"`
	AuthorizedRegions []string         `gorm:"type:text;serializer:json" json:"authorized_regions"`
	AuthorizedCities  AuthorizedCities `gorm:"type:text;serializer:json" json:"authorized_cities"`
	CommissionRate    *float64         `json:"commission_rate"` // mirrors the latest approved agreement
	RespondedAt       *time.Time       `json:"responded_at"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// TableName specifies the table name for the Connection model
func (Connection) TableName() string {
	return "connections"
}

// IsApproved reports whether orders may be placed under the connection
func (c *Connection) IsApproved() bool {
	return c.Status == ConnectionApproved
}

// HasRegion reports whether state is one of the authorized regions
func (c *Connection) HasRegion(state string) bool {
	for _, r := range c.AuthorizedRegions {
		if r == state {
			return true
		}
	}
	return false
}

// CanDeliverTo reports whether a delivery to city/state falls inside the authorized territory
func (c *Connection) CanDeliverTo(state, city string) bool {
	return c.HasRegion(state) && IsCityAuthorized(c.AuthorizedCities, state, city)
}

// IsParticipant reports whether userID is the specifier or the factory of the connection
func (c *Connection) IsParticipant(userID uint) bool {
	return c.SpecifierID == userID || c.FactoryID == userID
}
