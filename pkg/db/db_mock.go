package db

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/vulncatalog/vulncatalog/pkg/types"
)

// MockOperation is a testify mock of the persistence gateway.
type MockOperation struct {
	mock.Mock
}

func (m *MockOperation) InsertTask(ctx context.Context, task types.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockOperation) BulkInsertVendors(ctx context.Context, vendors []types.Vendor) error {
	args := m.Called(ctx, vendors)
	return args.Error(0)
}

func (m *MockOperation) BulkInsertProducts(ctx context.Context, products []types.Product) error {
	args := m.Called(ctx, products)
	return args.Error(0)
}

func (m *MockOperation) BulkInsertCves(ctx context.Context, cves []types.Cve) error {
	args := m.Called(ctx, cves)
	return args.Error(0)
}

func (m *MockOperation) BulkInsertChanges(ctx context.Context, changes []types.Change) error {
	args := m.Called(ctx, changes)
	return args.Error(0)
}

func (m *MockOperation) BulkInsertEvents(ctx context.Context, events []types.Event) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *MockOperation) BulkInsertCwes(ctx context.Context, cwes []types.Cwe) error {
	args := m.Called(ctx, cwes)
	return args.Error(0)
}

func (m *MockOperation) VendorNames(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	names, _ := args.Get(0).(map[string]string)
	return names, args.Error(1)
}

func (m *MockOperation) ProductSlugs(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	slugs, _ := args.Get(0).(map[string]string)
	return slugs, args.Error(1)
}

type InsertExpectation struct {
	Method  string
	Returns error
}

// ApplyInsertExpectation registers an any-argument expectation for one of
// the insert methods.
func (m *MockOperation) ApplyInsertExpectation(e InsertExpectation) {
	m.On(e.Method, mock.Anything, mock.Anything).Return(e.Returns)
}

func (m *MockOperation) ApplyInsertExpectations(expectations []InsertExpectation) {
	for _, e := range expectations {
		m.ApplyInsertExpectation(e)
	}
}

type WarmupExpectation struct {
	Vendors  map[string]string
	Products map[string]string
	Err      error
}

// ApplyWarmupExpectation registers the taxonomy warm-up lookups.
func (m *MockOperation) ApplyWarmupExpectation(e WarmupExpectation) {
	m.On("VendorNames", mock.Anything).Return(e.Vendors, e.Err)
	m.On("ProductSlugs", mock.Anything).Return(e.Products, e.Err)
}
