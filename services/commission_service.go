package services

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fabricaconecta/parceria-api/models"
)

// CommissionService negotiates commission percentages on approved connections
type CommissionService struct {
	db          *gorm.DB
	logger      *zap.Logger
	connections *ConnectionService
}

// NewCommissionService creates the service
func NewCommissionService(db *gorm.DB, logger *zap.Logger, connections *ConnectionService) *CommissionService {
	return &CommissionService{db: db, logger: logger, connections: connections}
}

// Request opens a new negotiation round. Only one pending round may exist per connection.
func (s *CommissionService) Request(ctx context.Context, actor Actor, connectionID uint, percentual float64, note string) (*models.CommissionAgreement, error) {
	if err := requireSpecifier(actor); err != nil {
		return nil, err
	}
	if err := validatePercentual("percentual_solicitado", percentual); err != nil {
		return nil, err
	}

	conn, err := s.connections.Get(ctx, actor, connectionID)
	if err != nil {
		return nil, err
	}
	if conn.SpecifierID != actor.UserID {
		return nil, newForbiddenError("Only the connection's specifier can request a commission")
	}
	if !conn.IsApproved() {
		return nil, newPreconditionError("CONNECTION_NOT_APPROVED", "Connection is not approved")
	}

	agreement := models.CommissionAgreement{
		ConnectionID:            connectionID,
		PercentualSolicitado:    percentual,
		Status:                  models.AgreementPendente,
		ObservacaoEspecificador: note,
		DataSolicitacao:         time.Now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending int64
		if err := tx.Model(&models.CommissionAgreement{}).
			Where("connection_id = ? AND status = ?", connectionID, models.AgreementPendente).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return errPendingAgreement()
		}
		return tx.Create(&agreement).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errPendingAgreement()
		}
		return nil, err
	}

	s.logger.Info("commission requested",
		zap.Uint("agreement_id", agreement.ID),
		zap.Uint("connection_id", connectionID),
		zap.Float64("percentual", percentual))
	return &agreement, nil
}

// Respond resolves a pending agreement. Approval closes the previous validity
// window and mirrors the approved value onto the connection.
func (s *CommissionService) Respond(ctx context.Context, actor Actor, agreementID uint, decision string, approved *float64, note string) (*models.CommissionAgreement, error) {
	if err := requireFactory(actor); err != nil {
		return nil, err
	}

	agreement, err := s.load(ctx, actor, agreementID)
	if err != nil {
		return nil, err
	}
	conn, err := s.connections.Get(ctx, actor, agreement.ConnectionID)
	if err != nil {
		return nil, err
	}
	if conn.FactoryID != actor.UserID {
		return nil, newForbiddenError("Only the connection's factory can respond")
	}

	now := time.Now()
	switch decision {
	case DecisionApprove:
		if approved == nil {
			return nil, newValidationError("VALIDATION_ERROR", "Approved percentage is required", map[string]string{"percentual_aprovado": "required"})
		}
		if err := validatePercentual("percentual_aprovado", *approved); err != nil {
			return nil, err
		}
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			result := tx.Model(&models.CommissionAgreement{}).
				Where("id = ? AND status = ?", agreementID, models.AgreementPendente).
				Updates(map[string]interface{}{
					"status":               models.AgreementAprovado,
					"percentual_aprovado":  *approved,
					"observacao_fabrica":   note,
					"data_resposta":        now,
					"data_vigencia_inicio": now,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return errAgreementResolved()
			}
			if err := tx.Model(&models.CommissionAgreement{}).
				Where("connection_id = ? AND status = ? AND id <> ? AND data_vigencia_fim IS NULL",
					agreement.ConnectionID, models.AgreementAprovado, agreementID).
				Update("data_vigencia_fim", now).Error; err != nil {
				return err
			}
			return tx.Model(&models.Connection{}).
				Where("id = ?", agreement.ConnectionID).
				Update("commission_rate", *approved).Error
		})
	case DecisionReject:
		result := s.db.WithContext(ctx).Model(&models.CommissionAgreement{}).
			Where("id = ? AND status = ?", agreementID, models.AgreementPendente).
			Updates(map[string]interface{}{
				"status":             models.AgreementRejeitado,
				"observacao_fabrica": note,
				"data_resposta":      now,
			})
		err = result.Error
		if err == nil && result.RowsAffected == 0 {
			err = errAgreementResolved()
		}
	default:
		return nil, newValidationError("INVALID_DECISION", "Decision must be approve or reject", map[string]string{"decision": "oneof"})
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("commission responded",
		zap.Uint("agreement_id", agreementID),
		zap.Uint("connection_id", agreement.ConnectionID),
		zap.String("decision", decision))
	return s.load(ctx, actor, agreementID)
}

// History lists a connection's agreements, newest first
func (s *CommissionService) History(ctx context.Context, actor Actor, connectionID uint) ([]models.CommissionAgreement, error) {
	if _, err := s.connections.Get(ctx, actor, connectionID); err != nil {
		return nil, err
	}

	var agreements []models.CommissionAgreement
	if err := s.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		Order("data_solicitacao DESC").Order("id DESC").
		Find(&agreements).Error; err != nil {
		return nil, err
	}
	return agreements, nil
}

// CurrentRate is the approved percentage of the most recently approved agreement, or nil
func (s *CommissionService) CurrentRate(ctx context.Context, actor Actor, connectionID uint) (*float64, error) {
	if _, err := s.connections.Get(ctx, actor, connectionID); err != nil {
		return nil, err
	}

	var agreement models.CommissionAgreement
	err := s.db.WithContext(ctx).
		Where("connection_id = ? AND status = ?", connectionID, models.AgreementAprovado).
		Order("data_resposta DESC").Order("id DESC").
		First(&agreement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return agreement.PercentualAprovado, nil
}

func (s *CommissionService) load(ctx context.Context, actor Actor, agreementID uint) (*models.CommissionAgreement, error) {
	var agreement models.CommissionAgreement
	if err := s.db.WithContext(ctx).First(&agreement, agreementID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newNotFoundError("AGREEMENT_NOT_FOUND", "Commission agreement not found")
		}
		return nil, err
	}
	if _, err := s.connections.Get(ctx, actor, agreement.ConnectionID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newNotFoundError("AGREEMENT_NOT_FOUND", "Commission agreement not found")
		}
		return nil, err
	}
	return &agreement, nil
}

func validatePercentual(field string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 100 {
		return newValidationError("INVALID_PERCENTUAL", "Percentage must be between 0 and 100", map[string]string{field: "range"})
	}
	return nil
}

func errPendingAgreement() error {
	return newConflictError("AGREEMENT_PENDING", "A commission request is already pending for this connection")
}

func errAgreementResolved() error {
	return newPreconditionError("AGREEMENT_ALREADY_RESOLVED", "Commission agreement is no longer pending")
}
