package jobs

// EscalationStage tracks how far an unresolved job's monitoring has
// progressed. Stages are ordered and only ever advance until the job
// reaches a terminal status in the store.
type EscalationStage int

const (
	StageNew EscalationStage = iota
	StageAdminAlerted
	StageCustomerNotified
	StageAutoAssignTriggered
	StageAssigned
	StageManuallyEscalated
)

var stageNames = map[EscalationStage]string{
	StageNew:                 "new",
	StageAdminAlerted:        "admin_alerted",
	StageCustomerNotified:    "customer_notified",
	StageAutoAssignTriggered: "auto_assign_triggered",
	StageAssigned:            "assigned",
	StageManuallyEscalated:   "manually_escalated",
}

func (s EscalationStage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// StageFromString parses a stage name as stored in the state store.
func StageFromString(name string) (EscalationStage, bool) {
	for stage, n := range stageNames {
		if n == name {
			return stage, true
		}
	}
	return StageNew, false
}

// Terminal reports whether the stage ends automated monitoring of the job.
// ManuallyEscalated is terminal for automation only; a human still owns it.
func (s EscalationStage) Terminal() bool {
	return s == StageAssigned || s == StageManuallyEscalated
}

// CanAdvanceTo enforces monotone non-decreasing stage transitions.
func (s EscalationStage) CanAdvanceTo(next EscalationStage) bool {
	return next >= s
}
