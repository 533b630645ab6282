package metrics

import "time"

// Outcome 账务操作结果标签
const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Recorder 记录账务操作指标，可接入 Prometheus 或其他后端
type Recorder interface {
	ObserveOperation(operation, outcome string, duration time.Duration)
	ObserveRetry(operation string)
}

// NoOp 默认实现，不采集任何指标
type NoOp struct{}

func (NoOp) ObserveOperation(string, string, time.Duration) {}

func (NoOp) ObserveRetry(string) {}
