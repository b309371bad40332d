package domain

import "time"

// Timeliness classifies whether an invoice was (or is being) paid relative to
// its due date.
type Timeliness string

const (
	PaidOnTime        Timeliness = "paid_on_time"
	PaidLate          Timeliness = "paid_late"
	Overdue           Timeliness = "overdue"
	TimelinessPending Timeliness = "pending"
)

// Classification is the derived payment state of an invoice at a point in time.
type Classification struct {
	Status     InvoiceStatus `json:"status"`
	Timeliness Timeliness    `json:"timeliness"`
}

// Classify derives an invoice's status and timeliness from ledger facts and
// the supplied clock. It is deterministic and side-effect free, and is the
// single source of truth for every "paid on time" / "overdue" display and
// count in the system.
//
// Rules:
//   - status: paid when nothing is pending; partial when something but not
//     everything is paid; pending otherwise.
//   - paid invoices with no due date are always on time.
//   - unpaid invoices are overdue once now is past the due date.
func Classify(inv Invoice, now time.Time) Classification {
	status := StatusFor(inv.PaidAmount, inv.TotalAmount)

	var timeliness Timeliness
	switch {
	case status == StatusPaid:
		if inv.DueDate == nil || inv.PaymentDate == nil || !inv.PaymentDate.After(*inv.DueDate) {
			timeliness = PaidOnTime
		} else {
			timeliness = PaidLate
		}
	case inv.DueDate != nil && now.After(*inv.DueDate):
		timeliness = Overdue
	default:
		timeliness = TimelinessPending
	}

	return Classification{Status: status, Timeliness: timeliness}
}
