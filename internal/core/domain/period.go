package domain

type PeriodMode string

const (
	PeriodMonth PeriodMode = "month"
	PeriodWeek  PeriodMode = "week"
)

// PeriodInfo is derived from an invoice date. PeriodKey is empty exactly when
// the date could not be parsed; FolderPath is then the root folder as given.
type PeriodInfo struct {
	PeriodType PeriodMode `json:"period_type"`
	PeriodKey  string     `json:"period_key,omitempty"`
	FolderPath string     `json:"folder_path"`
}

func (p PeriodInfo) HasKey() bool {
	return p.PeriodKey != ""
}
