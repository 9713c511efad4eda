package request

type AcceptRejectRequest struct {
	Action string `json:"action" validate:"required,oneof=accept reject"`
}

type UpdateJobStatusRequest struct {
	Status     string   `json:"status" validate:"required,oneof=provider_arriving in_progress completed"`
	ReportRefs []string `json:"report_refs,omitempty" validate:"omitempty,max=20,dive,required,max=500"`
}
