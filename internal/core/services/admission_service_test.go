package services_test

import (
	"context"
	"errors"
	"testing"

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

type AdmissionServiceTestSuite struct {
	suite.Suite
	mockStudentRepo *MockStudentRepository
	mockInvoiceRepo *MockInvoiceRepository
	mockLinkQueue   *MockPendingLinkQueue
	service         portssvc.AdmissionSvcFacade
	admittedBy      string
}

func (suite *AdmissionServiceTestSuite) SetupTest() {
	suite.mockStudentRepo = new(MockStudentRepository)
	suite.mockInvoiceRepo = new(MockInvoiceRepository)
	suite.mockLinkQueue = new(MockPendingLinkQueue)
	suite.service = services.NewAdmissionService(suite.mockStudentRepo, suite.mockInvoiceRepo, suite.mockLinkQueue)
	suite.admittedBy = uuid.NewString()
}

func (suite *AdmissionServiceTestSuite) admissionRequest() dto.AdmitStudentRequest {
	return dto.AdmitStudentRequest{
		PersonalInfo: domain.PersonalInfo{FirstName: "Asha", LastName: "Verma"},
		AdmissionFee: decimal.NewFromInt(500),
		MonthlyFee:   decimal.NewFromInt(1500),
	}
}

func (suite *AdmissionServiceTestSuite) TestAdmitStudent_LinksInvoice() {
	req := suite.admissionRequest()

	var savedStudent domain.Student
	suite.mockStudentRepo.On("SaveStudent", mock.Anything, mock.MatchedBy(func(s domain.Student) bool {
		savedStudent = s
		return s.FeeInfo.TotalFee.Equal(decimal.NewFromInt(2000)) &&
			s.FeeInfo.PendingFee.Equal(decimal.NewFromInt(2000)) &&
			s.Version == 1 &&
			s.AdmissionNo != ""
	})).Return(nil).Once()
	suite.mockInvoiceRepo.On("FindAdmissionInvoice", mock.Anything, mock.Anything).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockInvoiceRepo.On("NextInvoiceNumber", mock.Anything).Return("INV-2026-000010", nil).Once()
	suite.mockStudentRepo.On("FindStudentByID", mock.Anything, mock.Anything).Return(&savedStudent, nil).Once()
	suite.mockInvoiceRepo.On("SaveInvoice", mock.Anything, mock.MatchedBy(func(inv domain.Invoice) bool {
		return inv.Source == domain.SourceAdmission &&
			inv.IsActive &&
			len(inv.Items) == 2 &&
			inv.Subtotal.Equal(decimal.NewFromInt(2000)) &&
			inv.TotalAmount.Equal(decimal.NewFromInt(2000))
	}), mock.MatchedBy(func(fee domain.FeeAggregate) bool {
		return fee.AdmissionFee.Equal(decimal.NewFromInt(500)) &&
			fee.MonthlyFee.Equal(decimal.NewFromInt(1500)) &&
			fee.TotalFee.Equal(decimal.NewFromInt(2000))
	}), int64(1)).Return(nil).Once()

	result, err := suite.service.AdmitStudent(context.Background(), req, suite.admittedBy)

	assert.NoError(suite.T(), err)
	assert.True(suite.T(), result.Linked)
	assert.NotNil(suite.T(), result.InvoiceID)
	assert.Empty(suite.T(), result.Warning)
	suite.mockStudentRepo.AssertExpectations(suite.T())
	suite.mockInvoiceRepo.AssertExpectations(suite.T())
}

func (suite *AdmissionServiceTestSuite) TestAdmitStudent_NegativeFeeRejected() {
	req := suite.admissionRequest()
	req.MonthlyFee = decimal.NewFromInt(-100)

	result, err := suite.service.AdmitStudent(context.Background(), req, suite.admittedBy)

	assert.Nil(suite.T(), result)
	assert.ErrorIs(suite.T(), err, apperrors.ErrValidation)
	suite.mockStudentRepo.AssertNotCalled(suite.T(), "SaveStudent", mock.Anything, mock.Anything)
}

func (suite *AdmissionServiceTestSuite) TestAdmitStudent_LinkFailureDoesNotRollBack() {
	req := suite.admissionRequest()

	suite.mockStudentRepo.On("SaveStudent", mock.Anything, mock.Anything).Return(nil).Once()
	suite.mockInvoiceRepo.On("FindAdmissionInvoice", mock.Anything, mock.Anything).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockInvoiceRepo.On("NextInvoiceNumber", mock.Anything).Return("", errors.New("sequence unavailable")).Once()
	suite.mockLinkQueue.On("Enqueue", mock.Anything, mock.MatchedBy(func(link domain.PendingLink) bool {
		return link.AdmissionFee.Equal(decimal.NewFromInt(500)) && link.MonthlyFee.Equal(decimal.NewFromInt(1500))
	})).Return(nil).Once()

	result, err := suite.service.AdmitStudent(context.Background(), req, suite.admittedBy)

	assert.NoError(suite.T(), err)
	assert.False(suite.T(), result.Linked)
	assert.NotEmpty(suite.T(), result.Warning)
	assert.NotEmpty(suite.T(), result.Student.StudentID)
	suite.mockLinkQueue.AssertExpectations(suite.T())
}

func (suite *AdmissionServiceTestSuite) TestAdmitStudent_SkipInvoice() {
	req := suite.admissionRequest()
	req.SkipInvoice = true

	suite.mockStudentRepo.On("SaveStudent", mock.Anything, mock.Anything).Return(nil).Once()

	result, err := suite.service.AdmitStudent(context.Background(), req, suite.admittedBy)

	assert.NoError(suite.T(), err)
	assert.False(suite.T(), result.Linked)
	suite.mockInvoiceRepo.AssertNotCalled(suite.T(), "FindAdmissionInvoice", mock.Anything, mock.Anything)
}

func (suite *AdmissionServiceTestSuite) TestLinkAdmissionToFees_Idempotent() {
	studentID := uuid.NewString()
	existing := &domain.Invoice{
		InvoiceID: uuid.NewString(),
		StudentID: studentID,
		Source:    domain.SourceAdmission,
	}
	req := dto.LinkFeesRequest{
		AdmissionFee: decimal.NewFromInt(500),
		MonthlyFee:   decimal.NewFromInt(1500),
	}

	suite.mockInvoiceRepo.On("FindAdmissionInvoice", mock.Anything, studentID).Return(existing, nil).Once()

	result, err := suite.service.LinkAdmissionToFees(context.Background(), studentID, req, suite.admittedBy)

	assert.NoError(suite.T(), err)
	assert.True(suite.T(), result.Linked)
	assert.Equal(suite.T(), existing.InvoiceID, *result.InvoiceID)
	suite.mockInvoiceRepo.AssertNotCalled(suite.T(), "SaveInvoice", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AdmissionServiceTestSuite) TestLinkAdmissionToFees_WithInitialPayment() {
	studentID := uuid.NewString()
	student := &domain.Student{StudentID: studentID, Version: 1}
	req := dto.LinkFeesRequest{
		AdmissionFee: decimal.NewFromInt(500),
		MonthlyFee:   decimal.NewFromInt(1500),
		InitialPaid:  decimal.NewFromInt(700),
	}

	suite.mockInvoiceRepo.On("FindAdmissionInvoice", mock.Anything, studentID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockInvoiceRepo.On("NextInvoiceNumber", mock.Anything).Return("INV-2026-000011", nil).Once()
	suite.mockStudentRepo.On("FindStudentByID", mock.Anything, studentID).Return(student, nil).Once()
	suite.mockInvoiceRepo.On("SaveInvoice", mock.Anything, mock.MatchedBy(func(inv domain.Invoice) bool {
		return inv.PaidAmount.Equal(decimal.NewFromInt(700)) &&
			inv.Status == domain.StatusPartial &&
			len(inv.Payments) == 1
	}), mock.MatchedBy(func(fee domain.FeeAggregate) bool {
		return fee.PaidFee.Equal(decimal.NewFromInt(700)) && fee.PendingFee.Equal(decimal.NewFromInt(1300))
	}), int64(1)).Return(nil).Once()

	result, err := suite.service.LinkAdmissionToFees(context.Background(), studentID, req, suite.admittedBy)

	assert.NoError(suite.T(), err)
	assert.True(suite.T(), result.Linked)
	suite.mockInvoiceRepo.AssertExpectations(suite.T())
}

func (suite *AdmissionServiceTestSuite) TestLinkAdmissionToFees_DuplicateRaceReturnsWinner() {
	studentID := uuid.NewString()
	student := &domain.Student{StudentID: studentID, Version: 1}
	winner := &domain.Invoice{InvoiceID: uuid.NewString(), StudentID: studentID, Source: domain.SourceAdmission}
	req := dto.LinkFeesRequest{
		AdmissionFee: decimal.NewFromInt(500),
		MonthlyFee:   decimal.NewFromInt(1500),
	}

	suite.mockInvoiceRepo.On("FindAdmissionInvoice", mock.Anything, studentID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockInvoiceRepo.On("NextInvoiceNumber", mock.Anything).Return("INV-2026-000012", nil).Once()
	suite.mockStudentRepo.On("FindStudentByID", mock.Anything, studentID).Return(student, nil).Once()
	suite.mockInvoiceRepo.On("SaveInvoice", mock.Anything, mock.Anything, mock.Anything, int64(1)).Return(apperrors.ErrDuplicate).Once()
	suite.mockInvoiceRepo.On("FindAdmissionInvoice", mock.Anything, studentID).Return(winner, nil).Once()

	result, err := suite.service.LinkAdmissionToFees(context.Background(), studentID, req, suite.admittedBy)

	assert.NoError(suite.T(), err)
	assert.True(suite.T(), result.Linked)
	assert.Equal(suite.T(), winner.InvoiceID, *result.InvoiceID)
}

func (suite *AdmissionServiceTestSuite) TestRetryPendingLinks() {
	linked := domain.PendingLink{StudentID: uuid.NewString(), AdmissionFee: decimal.NewFromInt(500), MonthlyFee: decimal.NewFromInt(1500)}
	gone := domain.PendingLink{StudentID: uuid.NewString(), AdmissionFee: decimal.NewFromInt(300), MonthlyFee: decimal.NewFromInt(900)}

	suite.mockLinkQueue.On("List", mock.Anything, 50).Return([]domain.PendingLink{linked, gone}, nil).Once()

	// First entry links successfully via the existing-invoice idempotence path.
	existing := &domain.Invoice{InvoiceID: uuid.NewString(), StudentID: linked.StudentID, Source: domain.SourceAdmission}
	suite.mockInvoiceRepo.On("FindAdmissionInvoice", mock.Anything, linked.StudentID).Return(existing, nil).Once()
	suite.mockLinkQueue.On("Remove", mock.Anything, linked.StudentID).Return(nil).Once()

	// Second entry's student no longer exists; the queue entry is dropped.
	suite.mockInvoiceRepo.On("FindAdmissionInvoice", mock.Anything, gone.StudentID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockInvoiceRepo.On("NextInvoiceNumber", mock.Anything).Return("INV-2026-000013", nil).Once()
	suite.mockStudentRepo.On("FindStudentByID", mock.Anything, gone.StudentID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockLinkQueue.On("Remove", mock.Anything, gone.StudentID).Return(nil).Once()

	count, err := suite.service.RetryPendingLinks(context.Background())

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)
	suite.mockLinkQueue.AssertExpectations(suite.T())
}

func (suite *AdmissionServiceTestSuite) TestRetryPendingLinks_KeepsInitialPayment() {
	studentID := uuid.NewString()
	entry := domain.PendingLink{
		StudentID:    studentID,
		AdmissionFee: decimal.NewFromInt(500),
		MonthlyFee:   decimal.NewFromInt(1500),
		InitialPaid:  decimal.NewFromInt(500),
		Method:       domain.MethodCash,
	}
	student := &domain.Student{
		StudentID: studentID,
		Version:   1,
		FeeInfo: domain.FeeAggregate{
			AdmissionFee: decimal.NewFromInt(500),
			MonthlyFee:   decimal.NewFromInt(1500),
			TotalFee:     decimal.NewFromInt(2000),
			PaidFee:      decimal.NewFromInt(500),
			PendingFee:   decimal.NewFromInt(1500),
		},
	}

	suite.mockLinkQueue.On("List", mock.Anything, 50).Return([]domain.PendingLink{entry}, nil).Once()
	suite.mockInvoiceRepo.On("FindAdmissionInvoice", mock.Anything, studentID).Return(nil, apperrors.ErrNotFound).Once()
	suite.mockInvoiceRepo.On("NextInvoiceNumber", mock.Anything).Return("INV-2026-000014", nil).Once()
	suite.mockStudentRepo.On("FindStudentByID", mock.Anything, studentID).Return(student, nil).Once()
	// The retried link must reproduce the desk collection the original request
	// carried, not rebuild the invoice with zero paid.
	suite.mockInvoiceRepo.On("SaveInvoice", mock.Anything, mock.MatchedBy(func(inv domain.Invoice) bool {
		return inv.PaidAmount.Equal(decimal.NewFromInt(500)) &&
			len(inv.Payments) == 1 &&
			inv.Payments[0].Method == domain.MethodCash
	}), mock.MatchedBy(func(fee domain.FeeAggregate) bool {
		return fee.PaidFee.Equal(decimal.NewFromInt(500)) && fee.PendingFee.Equal(decimal.NewFromInt(1500))
	}), int64(1)).Return(nil).Once()
	suite.mockLinkQueue.On("Remove", mock.Anything, studentID).Return(nil).Once()

	count, err := suite.service.RetryPendingLinks(context.Background())

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)
	suite.mockInvoiceRepo.AssertExpectations(suite.T())
	suite.mockLinkQueue.AssertExpectations(suite.T())
}

func (suite *AdmissionServiceTestSuite) TestRetryPendingLinks_DropsExhaustedEntries() {
	entry := domain.PendingLink{
		StudentID:    uuid.NewString(),
		AdmissionFee: decimal.NewFromInt(500),
		MonthlyFee:   decimal.NewFromInt(1500),
		Attempts:     5,
		LastError:    "sequence unavailable",
	}

	suite.mockLinkQueue.On("List", mock.Anything, 50).Return([]domain.PendingLink{entry}, nil).Once()
	suite.mockLinkQueue.On("Remove", mock.Anything, entry.StudentID).Return(nil).Once()

	count, err := suite.service.RetryPendingLinks(context.Background())

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, count)
	suite.mockInvoiceRepo.AssertNotCalled(suite.T(), "FindAdmissionInvoice", mock.Anything, mock.Anything)
	suite.mockLinkQueue.AssertExpectations(suite.T())
}

func TestAdmissionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AdmissionServiceTestSuite))
}
