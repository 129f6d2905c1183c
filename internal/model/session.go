package model

type SessionState int

const (
	DefaultState SessionState = iota
	ExpectingMonthlyYear
	ExpectingReportYear
)

// Session is the per-chat dialog state kept between telegram updates.
type Session struct {
	State SessionState `json:"state"`
}
