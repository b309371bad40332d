package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates how a payment was collected.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodCard         PaymentMethod = "card"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodOnline       PaymentMethod = "online"
	MethodCheque       PaymentMethod = "cheque"
)

// Payment is a single recorded payment applied against an invoice.
// Payments are append-only; the sum of a given invoice's payment amounts must
// equal that invoice's paidAmount.
type Payment struct {
	PaymentID     string          `json:"paymentID"` // Primary key (UUID)
	InvoiceID     string          `json:"invoiceID"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"paymentMethod"`
	PaymentDate   time.Time       `json:"paymentDate"`
	ReceiptNo     string          `json:"receiptNo"`
	TransactionNo string          `json:"transactionNo"`
	CollectedBy   string          `json:"collectedBy"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// SumPayments totals the amounts of the given payments.
func SumPayments(payments []Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	return sum
}
