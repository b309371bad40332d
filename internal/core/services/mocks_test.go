package services_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/akschools/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/akschools/fee_ledger_app/internal/core/ports/repositories"
)

// --- Mock StudentRepository ---
type MockStudentRepository struct {
	mock.Mock
}

var _ portsrepo.StudentRepositoryFacade = (*MockStudentRepository)(nil)

func (m *MockStudentRepository) FindStudentByID(ctx context.Context, studentID string) (*domain.Student, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Student), args.Error(1)
}

func (m *MockStudentRepository) ListStudents(ctx context.Context, limit int, nextToken *string) ([]domain.Student, *string, error) {
	args := m.Called(ctx, limit, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var returnedNextToken *string
	if args.Get(1) != nil {
		tokenVal := args.Get(1).(string)
		returnedNextToken = &tokenVal
	}
	return args.Get(0).([]domain.Student), returnedNextToken, args.Error(2)
}

func (m *MockStudentRepository) SaveStudent(ctx context.Context, student domain.Student) error {
	args := m.Called(ctx, student)
	return args.Error(0)
}

func (m *MockStudentRepository) ApplyFeeCorrection(ctx context.Context, studentID string, fee domain.FeeAggregate, expectedVersion int64, log domain.CorrectionLog) error {
	args := m.Called(ctx, studentID, fee, expectedVersion, log)
	return args.Error(0)
}

func (m *MockStudentRepository) ApplyAdmissionCorrection(ctx context.Context, student domain.Student, expectedVersion int64, log domain.CorrectionLog) error {
	args := m.Called(ctx, student, expectedVersion, log)
	return args.Error(0)
}

func (m *MockStudentRepository) ListCorrections(ctx context.Context, studentID string) ([]domain.CorrectionLog, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CorrectionLog), args.Error(1)
}

// --- Mock InvoiceRepository ---
type MockInvoiceRepository struct {
	mock.Mock
}

var _ portsrepo.InvoiceRepositoryFacade = (*MockInvoiceRepository)(nil)

func (m *MockInvoiceRepository) FindInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ListInvoicesByStudent(ctx context.Context, studentID string) ([]domain.Invoice, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindActiveInvoice(ctx context.Context, studentID string) (*domain.Invoice, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAdmissionInvoice(ctx context.Context, studentID string) (*domain.Invoice, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) NextInvoiceNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockInvoiceRepository) SaveInvoice(ctx context.Context, invoice domain.Invoice, fee domain.FeeAggregate, studentVersion int64) error {
	args := m.Called(ctx, invoice, fee, studentVersion)
	return args.Error(0)
}

func (m *MockInvoiceRepository) AddPayment(ctx context.Context, payment domain.Payment, invoice domain.Invoice, fee *domain.FeeAggregate, studentVersion int64) error {
	args := m.Called(ctx, payment, invoice, fee, studentVersion)
	return args.Error(0)
}

func (m *MockInvoiceRepository) DeleteInvoice(ctx context.Context, invoiceID string) error {
	args := m.Called(ctx, invoiceID)
	return args.Error(0)
}

// --- Mock PendingLinkQueue ---
type MockPendingLinkQueue struct {
	mock.Mock
}

var _ portsrepo.PendingLinkQueue = (*MockPendingLinkQueue)(nil)

func (m *MockPendingLinkQueue) Enqueue(ctx context.Context, link domain.PendingLink) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockPendingLinkQueue) List(ctx context.Context, limit int) ([]domain.PendingLink, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PendingLink), args.Error(1)
}

func (m *MockPendingLinkQueue) Remove(ctx context.Context, studentID string) error {
	args := m.Called(ctx, studentID)
	return args.Error(0)
}

func (m *MockPendingLinkQueue) RecordAttempt(ctx context.Context, studentID string, lastError string) error {
	args := m.Called(ctx, studentID, lastError)
	return args.Error(0)
}
