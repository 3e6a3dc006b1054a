package models

type CheckOutcome string

const (
	OutcomeBaseline    CheckOutcome = "baseline"
	OutcomeUnchanged   CheckOutcome = "unchanged"
	OutcomeChanged     CheckOutcome = "changed"
	OutcomeFetchFailed CheckOutcome = "fetch_failed"
)

// CheckResult содержит результат проверки одного ресурса. Для изменённых
// ресурсов хранит старое и новое содержимое.
type CheckResult struct {
	Resource        *Resource
	Outcome         CheckOutcome
	SnapshotID      int64
	PreviousContent string
	CurrentContent  string
	Err             error
}

type SummaryResult struct {
	Summary    string `json:"summary"`
	ChangeType string `json:"change_type"`
}

// RunFilter сужает запуск проверки до одного топика или одной сущности.
type RunFilter struct {
	TopicName  string
	EntityName string
}

type RunSummary struct {
	Baseline  int
	Unchanged int
	Changed   int
	Failed    int
	Digests   []*Digest
}

func (s *RunSummary) Total() int {
	return s.Baseline + s.Unchanged + s.Changed + s.Failed
}
