package models

import (
	"time"
)

// Commission agreement statuses
const (
	AgreementPendente  = "pendente"
	AgreementAprovado  = "aprovado"
	AgreementRejeitado = "rejeitado"
)

// CommissionAgreement is one commission negotiation round on a Connection
type CommissionAgreement struct {
	ID                      uint       `gorm:"primaryKey" json:"id"`
	ConnectionID            uint       `gorm:"not null;index" json:"connection_id"`
	PercentualSolicitado    float64    `gorm:"not null" json:"percentual_solicitado"`
	PercentualAprovado      *float64   `json:"percentual_aprovado"` // set only on approval
	Status                  string     `gorm:"not null;default:'pendente';index" json:"status"`
	ObservacaoEspecificador string     `gorm:"type:text" json:"observacao_especificador"`
	ObservacaoFabrica       string     `gorm:"type:text" json:"observacao_fabrica"`
	DataSolicitacao         time.Time  `gorm:"not null" json:"data_solicitacao"`
	DataResposta            *time.Time `json:"data_resposta"`
	DataVigenciaInicio      *time.Time `json:"data_vigencia_inicio"`
	DataVigenciaFim         *time.Time `json:"data_vigencia_fim"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the CommissionAgreement model
func (CommissionAgreement) TableName() string {
	return "commission_agreements"
}
