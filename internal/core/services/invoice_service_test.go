package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/akschools/fee_ledger_app/internal/apperrors"
	"github.com/akschools/fee_ledger_app/internal/core/domain"
	portssvc "github.com/akschools/fee_ledger_app/internal/core/ports/services"
	"github.com/akschools/fee_ledger_app/internal/core/services"
	"github.com/akschools/fee_ledger_app/internal/dto"
)

type InvoiceServiceTestSuite struct {
	suite.Suite
	mockInvoiceRepo *MockInvoiceRepository
	mockStudentRepo *MockStudentRepository
	service         portssvc.InvoiceSvcFacade
	studentID       string
	collectedBy     string
}

func (suite *InvoiceServiceTestSuite) SetupTest() {
	suite.mockInvoiceRepo = new(MockInvoiceRepository)
	suite.mockStudentRepo = new(MockStudentRepository)
	suite.service = services.NewInvoiceService(suite.mockInvoiceRepo, suite.mockStudentRepo)
	suite.studentID = uuid.NewString()
	suite.collectedBy = uuid.NewString()
}

func (suite *InvoiceServiceTestSuite) student(version int64) *domain.Student {
	return &domain.Student{
		StudentID: suite.studentID,
		FeeInfo: domain.FeeAggregate{
			AdmissionFee: decimal.NewFromInt(500),
			MonthlyFee:   decimal.NewFromInt(1500),
			TotalFee:     decimal.NewFromInt(2000),
			PaidFee:      decimal.Zero,
			PendingFee:   decimal.NewFromInt(2000),
		},
		Version: version,
	}
}

func (suite *InvoiceServiceTestSuite) TestCreateInvoice_WithInitialPayment() {
	req := dto.CreateInvoiceRequest{
		StudentID: suite.studentID,
		Items: []dto.InvoiceItemRequest{
			{Description: "Tuition", Amount: decimal.NewFromInt(1800), Quantity: 1},
			{Description: "Lab Fee", Amount: decimal.NewFromInt(100), Quantity: 2},
		},
		InitialPayment: &dto.InitialPaymentRequest{
			Amount: decimal.NewFromInt(500),
			Method: domain.MethodCash,
		},
	}

	suite.mockInvoiceRepo.On("NextInvoiceNumber", mock.Anything).Return("INV-2026-000001", nil).Once()
	suite.mockStudentRepo.On("FindStudentByID", mock.Anything, suite.studentID).Return(suite.student(1), nil).Once()
	suite.mockInvoiceRepo.On("SaveInvoice", mock.Anything, mock.MatchedBy(func(inv domain.Invoice) bool {
		return inv.Subtotal.Equal(decimal.NewFromInt(2000)) &&
			inv.TotalAmount.Equal(decimal.NewFromInt(2000)) &&
			inv.PaidAmount.Equal(decimal.NewFromInt(500)) &&
			inv.Status == domain.StatusPartial &&
			inv.IsActive &&
			len(inv.Payments) == 1
	}), mock.MatchedBy(func(fee domain.FeeAggregate) bool {
		return fee.TotalFee.Equal(decimal.NewFromInt(2000)) &&
			fee.PaidFee.Equal(decimal.NewFromInt(500)) &&
			fee.PendingFee.Equal(decimal.NewFromInt(1500))
	}), int64(1)).Return(nil).Once()

	invoice, err := suite.service.CreateInvoice(context.Background(), req, suite.collectedBy)

	assert.NoError(suite.T(), err)
	assert.NotNil(suite.T(), invoice)
	assert.Equal(suite.T(), "INV-2026-000001", invoice.InvoiceNo)
	assert.True(suite.T(), invoice.PendingAmount.Equal(decimal.NewFromInt(1500)))
	suite.mockInvoiceRepo.AssertExpectations(suite.T())
	suite.mockStudentRepo.AssertExpectations(suite.T())
}

func (suite *InvoiceServiceTestSuite) TestCreateInvoice_DiscountExceedsSubtotal() {
	req := dto.CreateInvoiceRequest{
		StudentID: suite.studentID,
		Items: []dto.InvoiceItemRequest{
			{Description: "Tuition", Amount: decimal.NewFromInt(100), Quantity: 1},
		},
		Discount: decimal.NewFromInt(200),
	}

	suite.mockInvoiceRepo.On("NextInvoiceNumber", mock.Anything).Return("INV-2026-000002", nil).Once()

	invoice, err := suite.service.CreateInvoice(context.Background(), req, suite.collectedBy)

	assert.Nil(suite.T(), invoice)
	assert.ErrorIs(suite.T(), err, apperrors.ErrValidation)
	suite.mockInvoiceRepo.AssertNotCalled(suite.T(), "SaveInvoice", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *InvoiceServiceTestSuite) TestCreateInvoice_RetriesOnVersionConflict() {
	req := dto.CreateInvoiceRequest{
		StudentID: suite.studentID,
		Items: []dto.InvoiceItemRequest{
			{Description: "Tuition", Amount: decimal.NewFromInt(1000), Quantity: 1},
		},
	}

	suite.mockInvoiceRepo.On("NextInvoiceNumber", mock.Anything).Return("INV-2026-000003", nil).Once()
	suite.mockStudentRepo.On("FindStudentByID", mock.Anything, suite.studentID).Return(suite.student(1), nil).Once()
	suite.mockInvoiceRepo.On("SaveInvoice", mock.Anything, mock.Anything, mock.Anything, int64(1)).Return(apperrors.ErrConflict).Once()
	suite.mockStudentRepo.On("FindStudentByID", mock.Anything, suite.studentID).Return(suite.student(2), nil).Once()
	suite.mockInvoiceRepo.On("SaveInvoice", mock.Anything, mock.Anything, mock.Anything, int64(2)).Return(nil).Once()

	invoice, err := suite.service.CreateInvoice(context.Background(), req, suite.collectedBy)

	assert.NoError(suite.T(), err)
	assert.NotNil(suite.T(), invoice)
	suite.mockInvoiceRepo.AssertExpectations(suite.T())
	suite.mockStudentRepo.AssertExpectations(suite.T())
}

func (suite *InvoiceServiceTestSuite) activeInvoice(total, paid int64) *domain.Invoice {
	invoiceID := uuid.NewString()
	return &domain.Invoice{
		InvoiceID:     invoiceID,
		InvoiceNo:     "INV-2026-000042",
		StudentID:     suite.studentID,
		Subtotal:      decimal.NewFromInt(total),
		TotalAmount:   decimal.NewFromInt(total),
		PaidAmount:    decimal.NewFromInt(paid),
		PendingAmount: decimal.NewFromInt(total - paid),
		Status:        domain.StatusFor(decimal.NewFromInt(paid), decimal.NewFromInt(total)),
		InvoiceDate:   time.Now().UTC(),
		Source:        domain.SourceManual,
		IsActive:      true,
		Version:       1,
	}
}

func (suite *InvoiceServiceTestSuite) TestRecordPayment_PartialPayment() {
	invoice := suite.activeInvoice(2000, 0)
	req := dto.RecordPaymentRequest{
		Amount: decimal.NewFromInt(800),
		Method: domain.MethodCash,
	}

	suite.mockInvoiceRepo.On("FindInvoiceByID", mock.Anything, invoice.InvoiceID).Return(invoice, nil).Once()
	suite.mockStudentRepo.On("FindStudentByID", mock.Anything, suite.studentID).Return(suite.student(3), nil).Once()
	suite.mockInvoiceRepo.On("AddPayment", mock.Anything, mock.MatchedBy(func(p domain.Payment) bool {
		return p.Amount.Equal(decimal.NewFromInt(800)) && p.ReceiptNo != "" && p.TransactionNo != ""
	}), mock.MatchedBy(func(inv domain.Invoice) bool {
		return inv.PaidAmount.Equal(decimal.NewFromInt(800)) &&
			inv.PendingAmount.Equal(decimal.NewFromInt(1200)) &&
			inv.Status == domain.StatusPartial
	}), mock.MatchedBy(func(fee *domain.FeeAggregate) bool {
		return fee != nil && fee.PaidFee.Equal(decimal.NewFromInt(800)) && fee.PendingFee.Equal(decimal.NewFromInt(1200))
	}), int64(3)).Return(nil).Once()

	updated, err := suite.service.RecordPayment(context.Background(), invoice.InvoiceID, req, suite.collectedBy)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), domain.StatusPartial, updated.Status)
	assert.Len(suite.T(), updated.Payments, 1)
	suite.mockInvoiceRepo.AssertExpectations(suite.T())
}

func (suite *InvoiceServiceTestSuite) TestRecordPayment_Overpayment() {
	invoice := suite.activeInvoice(2000, 1500)
	req := dto.RecordPaymentRequest{
		Amount: decimal.NewFromInt(1000),
		Method: domain.MethodOnline,
	}

	suite.mockInvoiceRepo.On("FindInvoiceByID", mock.Anything, invoice.InvoiceID).Return(invoice, nil).Once()
	suite.mockStudentRepo.On("FindStudentByID", mock.Anything, suite.studentID).Return(suite.student(1), nil).Once()
	// Overpayment is accepted: paid 2500 on a 2000 invoice, pending -500.
	suite.mockInvoiceRepo.On("AddPayment", mock.Anything, mock.Anything, mock.MatchedBy(func(inv domain.Invoice) bool {
		return inv.PaidAmount.Equal(decimal.NewFromInt(2500)) &&
			inv.PendingAmount.Equal(decimal.NewFromInt(-500)) &&
			inv.Status == domain.StatusPaid
	}), mock.Anything, int64(1)).Return(nil).Once()

	updated, err := suite.service.RecordPayment(context.Background(), invoice.InvoiceID, req, suite.collectedBy)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), domain.StatusPaid, updated.Status)
	assert.True(suite.T(), updated.PendingAmount.IsNegative())
}

func (suite *InvoiceServiceTestSuite) TestRecordPayment_NonPositiveAmount() {
	req := dto.RecordPaymentRequest{Amount: decimal.Zero, Method: domain.MethodCash}

	updated, err := suite.service.RecordPayment(context.Background(), uuid.NewString(), req, suite.collectedBy)

	assert.Nil(suite.T(), updated)
	assert.ErrorIs(suite.T(), err, apperrors.ErrInvalidAmount)
	suite.mockInvoiceRepo.AssertNotCalled(suite.T(), "FindInvoiceByID", mock.Anything, mock.Anything)
}

func (suite *InvoiceServiceTestSuite) TestRecordPayment_InactiveInvoiceSkipsAggregate() {
	invoice := suite.activeInvoice(1000, 0)
	invoice.IsActive = false
	req := dto.RecordPaymentRequest{Amount: decimal.NewFromInt(400), Method: domain.MethodCard}

	suite.mockInvoiceRepo.On("FindInvoiceByID", mock.Anything, invoice.InvoiceID).Return(invoice, nil).Once()
	suite.mockInvoiceRepo.On("AddPayment", mock.Anything, mock.Anything, mock.Anything, (*domain.FeeAggregate)(nil), int64(0)).Return(nil).Once()

	_, err := suite.service.RecordPayment(context.Background(), invoice.InvoiceID, req, suite.collectedBy)

	assert.NoError(suite.T(), err)
	suite.mockStudentRepo.AssertNotCalled(suite.T(), "FindStudentByID", mock.Anything, mock.Anything)
	suite.mockInvoiceRepo.AssertExpectations(suite.T())
}

func (suite *InvoiceServiceTestSuite) TestDeleteInvoice_RequiresConfirmation() {
	resp, err := suite.service.DeleteInvoice(context.Background(), uuid.NewString(), false, suite.collectedBy)

	assert.Nil(suite.T(), resp)
	assert.ErrorIs(suite.T(), err, apperrors.ErrValidation)
	suite.mockInvoiceRepo.AssertNotCalled(suite.T(), "DeleteInvoice", mock.Anything, mock.Anything)
}

func (suite *InvoiceServiceTestSuite) TestDeleteInvoice_ActiveInvoiceWarns() {
	invoice := suite.activeInvoice(2000, 500)

	suite.mockInvoiceRepo.On("FindInvoiceByID", mock.Anything, invoice.InvoiceID).Return(invoice, nil).Once()
	suite.mockInvoiceRepo.On("DeleteInvoice", mock.Anything, invoice.InvoiceID).Return(nil).Once()

	resp, err := suite.service.DeleteInvoice(context.Background(), invoice.InvoiceID, true, suite.collectedBy)

	assert.NoError(suite.T(), err)
	assert.True(suite.T(), resp.Deleted)
	assert.Contains(suite.T(), resp.Warning, invoice.InvoiceNo)
	suite.mockInvoiceRepo.AssertExpectations(suite.T())
}

func (suite *InvoiceServiceTestSuite) TestDeleteInvoice_InactiveInvoiceNoWarning() {
	invoice := suite.activeInvoice(2000, 2000)
	invoice.IsActive = false

	suite.mockInvoiceRepo.On("FindInvoiceByID", mock.Anything, invoice.InvoiceID).Return(invoice, nil).Once()
	suite.mockInvoiceRepo.On("DeleteInvoice", mock.Anything, invoice.InvoiceID).Return(nil).Once()

	resp, err := suite.service.DeleteInvoice(context.Background(), invoice.InvoiceID, true, suite.collectedBy)

	assert.NoError(suite.T(), err)
	assert.True(suite.T(), resp.Deleted)
	assert.Empty(suite.T(), resp.Warning)
}

func TestInvoiceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(InvoiceServiceTestSuite))
}
