package crm

// Deal pipeline stages, in pipeline order
const (
	StageProspecting      = "Prospecting"
	StageQualification    = "Qualification"
	StageNeedsAnalysis    = "Needs Analysis"
	StageValueProposition = "Value Proposition"
	StageDecisionMaking   = "Decision Making"
	StageNegotiation      = "Negotiation"
	StageClosedWon        = "Closed Won"
	StageClosedLost       = "Closed Lost"
)

// Task statuses and priorities
const (
	TaskStatusOpen       = "Open"
	TaskStatusInProgress = "In Progress"
	TaskStatusCompleted  = "Completed"
	TaskStatusCancelled  = "Cancelled"

	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// Activity types and statuses
const (
	ActivityTypeCall    = "Call"
	ActivityTypeEmail   = "Email"
	ActivityTypeMeeting = "Meeting"

	ActivityStatusPlanned   = "Planned"
	ActivityStatusCompleted = "Completed"
	ActivityStatusCancelled = "Cancelled"
)

// Invoice statuses
const (
	InvoiceStatusDraft   = "Draft"
	InvoiceStatusSent    = "Sent"
	InvoiceStatusPaid    = "Paid"
	InvoiceStatusOverdue = "Overdue"
	InvoiceStatusVoid    = "Void"
)

var (
	DealStages = []string{
		StageProspecting, StageQualification, StageNeedsAnalysis, StageValueProposition,
		StageDecisionMaking, StageNegotiation, StageClosedWon, StageClosedLost,
	}
	TaskStatuses       = []string{TaskStatusOpen, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled}
	TaskPriorities     = []string{PriorityLow, PriorityMedium, PriorityHigh}
	ActivityTypes      = []string{ActivityTypeCall, ActivityTypeEmail, ActivityTypeMeeting}
	ActivityStatuses   = []string{ActivityStatusPlanned, ActivityStatusCompleted, ActivityStatusCancelled}
	InvoiceStatuses    = []string{InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusVoid}
)

// Options is the static set of choices offered by the entity forms
type Options struct {
	DealStages       []string `json:"dealStages"`
	TaskStatuses     []string `json:"taskStatuses"`
	TaskPriorities   []string `json:"taskPriorities"`
	ActivityTypes    []string `json:"activityTypes"`
	ActivityStatuses []string `json:"activityStatuses"`
	InvoiceStatuses  []string `json:"invoiceStatuses"`
}

// AllOptions returns copies of every enumeration
func AllOptions() Options {
	return Options{
		DealStages:       append([]string(nil), DealStages...),
		TaskStatuses:     append([]string(nil), TaskStatuses...),
		TaskPriorities:   append([]string(nil), TaskPriorities...),
		ActivityTypes:    append([]string(nil), ActivityTypes...),
		ActivityStatuses: append([]string(nil), ActivityStatuses...),
		InvoiceStatuses:  append([]string(nil), InvoiceStatuses...),
	}
}

func isOneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if a == value {
			return true
		}
	}
	return false
}
