package models

// TestStatus is the outcome channel of a sandbox test execution. A test that
// ran and failed is "failed"; a transport or sandbox fault is "error".
type TestStatus string

const (
	TestStatusSuccess TestStatus = "success"
	TestStatusFailed  TestStatus = "failed"
	TestStatusError   TestStatus = "error"
)

// TestResult is the structured result of running a generated test.
type TestResult struct {
	Status TestStatus `json:"status"`
	Output string     `json:"output"`
}
