package services

// ServiceContainer aggregates the service facades handed to route registration.
type ServiceContainer struct {
	Admission      AdmissionSvcFacade
	Invoice        InvoiceSvcFacade
	Correction     CorrectionSvcFacade
	Summary        SummarySvcFacade
	Reconciliation ReconciliationSvcFacade
	Student        StudentSvcFacade
}
