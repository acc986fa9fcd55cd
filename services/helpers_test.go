package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fabricaconecta/parceria-api/models"
)

const validCNPJ = "11.222.333/0001-81"

// setupServiceTestDB opens a migrated in-memory database pinned to one connection
func setupServiceTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.Migrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, role, name string) models.User {
	user := models.User{
		Auth0ID: "auth0|" + name,
		Name:    name,
		Email:   fmt.Sprintf("%s@example.com", name),
		Role:    role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func actorOf(u models.User) Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}

func validApplication() models.ApplicationData {
	return models.ApplicationData{
		TipoPessoa:     models.PessoaJuridica,
		Documento:      validCNPJ,
		RazaoSocial:    "Projetos Silva LTDA",
		ModosLogistica: []string{"correios"},
		EstadosAtuacao: []string{"SP", "RJ"},
		RedesSociais:   models.SocialLinks{Instagram: "@projetossilva"},
		Endereco: models.PostalAddress{
			CEP:        "01310-100",
			Logradouro: "Avenida Paulista",
			Numero:     "1000",
			Bairro:     "Bela Vista",
			Cidade:     "São Paulo",
			Estado:     "SP",
		},
	}
}

// createApprovedConnection inserts an approved connection directly
func createApprovedConnection(t *testing.T, db *gorm.DB, specifier, factory models.User, regions []string, rate *float64) models.Connection {
	conn := models.Connection{
		SpecifierID:       specifier.ID,
		FactoryID:         factory.ID,
		Status:            models.ConnectionApproved,
		ApplicationData:   validApplication(),
		AuthorizedRegions: regions,
		AuthorizedCities:  models.AuthorizedCities{},
		CommissionRate:    rate,
	}
	require.NoError(t, db.Omit("Specifier", "Factory").Create(&conn).Error)
	return conn
}

func createProduct(t *testing.T, db *gorm.DB, factory models.User, nome string, preco float64) models.Product {
	product := models.Product{FactoryID: factory.ID, Nome: nome, Preco: preco, Ativo: true}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func floatPtr(v float64) *float64 {
	return &v
}

func strPtr(v string) *string {
	return &v
}

// fakeAddressLookup answers from a fixed table
type fakeAddressLookup struct {
	entries map[string]*AddressInfo
	calls   int
}

func (f *fakeAddressLookup) Lookup(ctx context.Context, cep string) (*AddressInfo, error) {
	f.calls++
	if info, ok := f.entries[cep]; ok {
		return info, nil
	}
	return nil, ErrAddressNotFound
}

// workflow bundles the services wired the way main does
type workflow struct {
	db          *gorm.DB
	connections *ConnectionService
	commissions *CommissionService
	orders      *OrderService
	payments    *PaymentService
	messages    *OrderMessageService
	catalog     *CatalogService
	storage     *MockProofStorage
	specifier   models.User
	factory     models.User
	conn        *models.Connection
}

func newWorkflow(t *testing.T) *workflow {
	db := setupServiceTestDB(t)
	logger := zap.NewNop()
	connections := NewConnectionService(db, logger, nil)
	orders := NewOrderService(db, logger)
	storage := NewMockProofStorage()
	return &workflow{
		db:          db,
		connections: connections,
		commissions: NewCommissionService(db, logger, connections),
		orders:      orders,
		payments:    NewPaymentService(db, logger, orders, storage, nil),
		messages:    NewOrderMessageService(db, logger, orders),
		catalog:     NewCatalogService(db, logger),
		storage:     storage,
		specifier:   createUser(t, db, models.RoleSpecifier, "especificador"),
		factory:     createUser(t, db, models.RoleFactory, "fabrica"),
	}
}

// connection returns the approved SP/RJ connection, creating it with rate on first use
func (w *workflow) connection(t *testing.T, rate *float64) models.Connection {
	if w.conn == nil {
		conn := createApprovedConnection(t, w.db, w.specifier, w.factory, []string{"SP", "RJ"}, rate)
		w.conn = &conn
	}
	return *w.conn
}

// draftOrder creates a draft with the given items as (price, quantity) pairs
func (w *workflow) draftOrder(t *testing.T, rate *float64, city, state string, lines ...[2]float64) *models.Order {
	conn := w.connection(t, rate)

	input := CreateOrderInput{
		ConnectionID:  conn.ID,
		ClienteNome:   "Maria Cliente",
		ClienteEmail:  "maria@example.com",
		EntregaCidade: city,
		EntregaEstado: state,
	}
	for i, line := range lines {
		product := createProduct(t, w.db, w.factory, fmt.Sprintf("Produto %d", i+1), line[0])
		input.Items = append(input.Items, OrderItemInput{ProductID: product.ID, Quantidade: int(line[1])})
	}

	order, err := w.orders.Create(context.Background(), actorOf(w.specifier), input)
	require.NoError(t, err)
	return order
}
