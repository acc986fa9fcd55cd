package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fabricaconecta/parceria-api/models"
	"github.com/fabricaconecta/parceria-api/utils"
)

// Decisions accepted by respond operations
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// ConnectionService runs the credentialing workflow between specifiers and factories
type ConnectionService struct {
	db       *gorm.DB
	logger   *zap.Logger
	validate *validator.Validate
	address  AddressLookup
}

// NewConnectionService creates the service. address may be nil, pre-fill is then skipped.
func NewConnectionService(db *gorm.DB, logger *zap.Logger, address AddressLookup) *ConnectionService {
	return &ConnectionService{
		db:       db,
		logger:   logger,
		validate: utils.NewValidator(),
		address:  address,
	}
}

// SubmitApplication creates a pending Connection from specifier to factory
func (s *ConnectionService) SubmitApplication(ctx context.Context, actor Actor, factoryID uint, data models.ApplicationData) (*models.Connection, error) {
	if err := requireSpecifier(actor); err != nil {
		return nil, err
	}

	var factory models.User
	if err := s.db.WithContext(ctx).Where("id = ? AND role = ?", factoryID, models.RoleFactory).First(&factory).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newNotFoundError("FACTORY_NOT_FOUND", "Factory not found")
		}
		return nil, err
	}

	data = normalizeApplication(data)
	s.prefillAddress(ctx, &data)

	if err := s.validateApplication(data); err != nil {
		return nil, err
	}

	conn := models.Connection{
		SpecifierID:       actor.UserID,
		FactoryID:         factoryID,
		Status:            models.ConnectionPending,
		ApplicationData:   data,
		AuthorizedRegions: []string{},
		AuthorizedCities:  models.AuthorizedCities{},
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active int64
		if err := tx.Model(&models.Connection{}).
			Where("specifier_id = ? AND factory_id = ? AND status IN ?", actor.UserID, factoryID,
				[]string{models.ConnectionPending, models.ConnectionApproved}).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return newConflictError("CONNECTION_EXISTS", "An active connection with this factory already exists")
		}
		return tx.Omit("Specifier", "Factory").Create(&conn).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, newConflictError("CONNECTION_EXISTS", "An active connection with this factory already exists")
		}
		return nil, err
	}

	s.logger.Info("connection application submitted",
		zap.Uint("connection_id", conn.ID),
		zap.Uint("specifier_id", actor.UserID),
		zap.Uint("factory_id", factoryID))
	return &conn, nil
}

// Respond approves or rejects a pending Connection. regions overrides the
// authorized regions on approval, defaulting to the claimed operating states.
func (s *ConnectionService) Respond(ctx context.Context, actor Actor, connectionID uint, decision string, regions []string) (*models.Connection, error) {
	conn, err := s.loadForFactory(ctx, actor, connectionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	update := models.Connection{RespondedAt: &now}
	columns := []string{"status", "responded_at"}

	switch decision {
	case DecisionApprove:
		if regions == nil {
			regions = conn.ApplicationData.EstadosAtuacao
		}
		normalized, err := normalizeRegions(regions)
		if err != nil {
			return nil, err
		}
		update.Status = models.ConnectionApproved
		update.AuthorizedRegions = normalized
		update.AuthorizedCities = models.AuthorizedCities{}
		columns = append(columns, "authorized_regions", "authorized_cities")
	case DecisionReject:
		update.Status = models.ConnectionRejected
	default:
		return nil, newValidationError("INVALID_DECISION", "Decision must be approve or reject", map[string]string{"decision": "oneof"})
	}

	result := s.db.WithContext(ctx).Model(&models.Connection{}).
		Where("id = ? AND status = ?", connectionID, models.ConnectionPending).
		Select(columns).
		Updates(&update)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, newPreconditionError("CONNECTION_ALREADY_RESPONDED", "Connection is no longer pending")
	}

	s.logger.Info("connection responded",
		zap.Uint("connection_id", connectionID),
		zap.String("status", update.Status))
	return s.Get(ctx, actor, connectionID)
}

// UpdateAuthorizedCities replaces the city map wholesale. Concurrent writers overwrite each other.
func (s *ConnectionService) UpdateAuthorizedCities(ctx context.Context, actor Actor, connectionID uint, cities models.AuthorizedCities) (*models.Connection, error) {
	conn, err := s.loadApprovedForFactory(ctx, actor, connectionID)
	if err != nil {
		return nil, err
	}

	normalized, err := cities.Normalize()
	if err != nil {
		return nil, newValidationError("DUPLICATE_STATE", "Each state may appear only once", map[string]string{"authorized_cities": err.Error()})
	}
	details := map[string]string{}
	for state := range normalized {
		if !conn.HasRegion(state) {
			details[state] = "not_in_authorized_regions"
		}
	}
	if len(details) > 0 {
		return nil, newValidationError("STATE_NOT_AUTHORIZED", "Cities can only be set for authorized regions", details)
	}

	if err := s.saveTerritory(ctx, connectionID, conn.AuthorizedRegions, normalized); err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, connectionID)
}

// UpdateAuthorizedRegions replaces the authorized states, dropping city entries of removed states
func (s *ConnectionService) UpdateAuthorizedRegions(ctx context.Context, actor Actor, connectionID uint, regions []string) (*models.Connection, error) {
	conn, err := s.loadApprovedForFactory(ctx, actor, connectionID)
	if err != nil {
		return nil, err
	}

	normalized, err := normalizeRegions(regions)
	if err != nil {
		return nil, err
	}

	if err := s.saveTerritory(ctx, connectionID, normalized, conn.AuthorizedCities.Prune(normalized)); err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, connectionID)
}

// SetStateMode toggles one state between all cities and an explicit list
func (s *ConnectionService) SetStateMode(ctx context.Context, actor Actor, connectionID uint, state string, all bool) (*models.Connection, error) {
	conn, err := s.loadApprovedForFactory(ctx, actor, connectionID)
	if err != nil {
		return nil, err
	}

	state = strings.ToUpper(strings.TrimSpace(state))
	if !conn.HasRegion(state) {
		return nil, newValidationError("STATE_NOT_AUTHORIZED", "State is not an authorized region", map[string]string{"state": "not_in_authorized_regions"})
	}

	cities := models.SetStateMode(conn.AuthorizedCities, state, all)
	if err := s.saveTerritory(ctx, connectionID, conn.AuthorizedRegions, cities); err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, connectionID)
}

// CheckCity reports whether a delivery to city in state is allowed under the connection
func (s *ConnectionService) CheckCity(ctx context.Context, actor Actor, connectionID uint, state, city string) (bool, error) {
	conn, err := s.Get(ctx, actor, connectionID)
	if err != nil {
		return false, err
	}
	return conn.CanDeliverTo(strings.ToUpper(strings.TrimSpace(state)), city), nil
}

// List returns the actor's connections, newest first. status filters when non-empty.
func (s *ConnectionService) List(ctx context.Context, actor Actor, status string) ([]models.Connection, error) {
	query := s.db.WithContext(ctx).Preload("Specifier").Preload("Factory")
	switch {
	case actor.IsFactory():
		query = query.Where("factory_id = ?", actor.UserID)
	case actor.IsSpecifier():
		query = query.Where("specifier_id = ?", actor.UserID)
	default:
		return nil, newForbiddenError("Unknown role")
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var conns []models.Connection
	if err := query.Order("created_at DESC").Order("id DESC").Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

// Get returns one connection the actor participates in
func (s *ConnectionService) Get(ctx context.Context, actor Actor, connectionID uint) (*models.Connection, error) {
	var conn models.Connection
	if err := s.db.WithContext(ctx).Preload("Specifier").Preload("Factory").First(&conn, connectionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newNotFoundError("CONNECTION_NOT_FOUND", "Connection not found")
		}
		return nil, err
	}
	if !conn.IsParticipant(actor.UserID) {
		return nil, newNotFoundError("CONNECTION_NOT_FOUND", "Connection not found")
	}
	return &conn, nil
}

func (s *ConnectionService) loadForFactory(ctx context.Context, actor Actor, connectionID uint) (*models.Connection, error) {
	if err := requireFactory(actor); err != nil {
		return nil, err
	}
	conn, err := s.Get(ctx, actor, connectionID)
	if err != nil {
		return nil, err
	}
	if conn.FactoryID != actor.UserID {
		return nil, newForbiddenError("Only the connection's factory can perform this action")
	}
	return conn, nil
}

func (s *ConnectionService) loadApprovedForFactory(ctx context.Context, actor Actor, connectionID uint) (*models.Connection, error) {
	conn, err := s.loadForFactory(ctx, actor, connectionID)
	if err != nil {
		return nil, err
	}
	if !conn.IsApproved() {
		return nil, newPreconditionError("CONNECTION_NOT_APPROVED", "Connection is not approved")
	}
	return conn, nil
}

func (s *ConnectionService) saveTerritory(ctx context.Context, connectionID uint, regions []string, cities models.AuthorizedCities) error {
	return s.db.WithContext(ctx).Model(&models.Connection{}).
		Where("id = ? AND status = ?", connectionID, models.ConnectionApproved).
		Select("authorized_regions", "authorized_cities").
		Updates(&models.Connection{AuthorizedRegions: regions, AuthorizedCities: cities}).Error
}

// prefillAddress fills blank address fields from the postal code. Lookup failures never block submission.
func (s *ConnectionService) prefillAddress(ctx context.Context, data *models.ApplicationData) {
	addr := &data.Endereco
	if s.address == nil || !utils.IsCEP(addr.CEP) {
		return
	}
	if addr.Logradouro != "" && addr.Bairro != "" && addr.Cidade != "" && addr.Estado != "" {
		return
	}

	info, err := s.address.Lookup(ctx, addr.CEP)
	if err != nil {
		s.logger.Warn("address pre-fill skipped", zap.String("cep", addr.CEP), zap.Error(err))
		return
	}
	if addr.Logradouro == "" {
		addr.Logradouro = info.Logradouro
	}
	if addr.Bairro == "" {
		addr.Bairro = info.Bairro
	}
	if addr.Cidade == "" {
		addr.Cidade = info.Cidade
	}
	if addr.Estado == "" {
		addr.Estado = strings.ToUpper(info.Estado)
	}
}

func (s *ConnectionService) validateApplication(data models.ApplicationData) error {
	if err := s.validate.Struct(data); err != nil {
		if details := utils.FieldErrors(err); details != nil {
			return newValidationError("VALIDATION_ERROR", "Application is incomplete", details)
		}
		return err
	}
	if data.TipoPessoa == models.PessoaJuridica && data.RazaoSocial == "" {
		return newValidationError("VALIDATION_ERROR", "Application is incomplete", map[string]string{"razao_social": "required"})
	}

	valid := false
	switch data.TipoPessoa {
	case models.PessoaFisica:
		valid = utils.IsValidCPF(data.Documento)
	case models.PessoaJuridica:
		valid = utils.IsValidCNPJ(data.Documento)
	}
	if !valid {
		return &WorkflowError{Kind: KindInvalidDocument, Code: "INVALID_DOCUMENT", Message: "Tax document is invalid"}
	}
	return nil
}

func normalizeApplication(data models.ApplicationData) models.ApplicationData {
	data.TipoPessoa = strings.TrimSpace(data.TipoPessoa)
	data.Documento = utils.OnlyDigits(data.Documento)
	data.RazaoSocial = strings.TrimSpace(data.RazaoSocial)
	for i, st := range data.EstadosAtuacao {
		data.EstadosAtuacao[i] = strings.ToUpper(strings.TrimSpace(st))
	}
	for i, m := range data.ModosLogistica {
		data.ModosLogistica[i] = strings.TrimSpace(m)
	}
	data.Endereco.CEP = strings.TrimSpace(data.Endereco.CEP)
	data.Endereco.Estado = strings.ToUpper(strings.TrimSpace(data.Endereco.Estado))
	data.Endereco.Cidade = strings.TrimSpace(data.Endereco.Cidade)
	return data
}

func normalizeRegions(regions []string) ([]string, error) {
	out := []string{}
	seen := map[string]bool{}
	for _, r := range regions {
		r = strings.ToUpper(strings.TrimSpace(r))
		if !models.IsBrazilianState(r) {
			return nil, newValidationError("INVALID_REGION", "Unknown state code: "+r, map[string]string{"authorized_regions": "uf"})
		}
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out, nil
}
