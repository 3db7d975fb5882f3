package services

// PrinterState is the Printer Gate's view of the device.
type PrinterState string

const (
	PrinterReady   PrinterState = "ready"
	PrinterBusy    PrinterState = "busy"
	PrinterOffline PrinterState = "offline"
	PrinterFault   PrinterState = "fault"
)

// PrinterStatus is a readiness report. Fault carries a short machine-readable
// kind such as "disabled" or "not-accepting".
type PrinterStatus struct {
	State  PrinterState
	Fault  string
	Detail string
}

// Ready reports whether a job may be submitted.
func (s PrinterStatus) Ready() bool {
	return s.State == PrinterReady
}

// PrintPhase is the progress of a submitted print job.
type PrintPhase string

const (
	PrintInProgress PrintPhase = "in_progress"
	PrintSucceeded  PrintPhase = "succeeded"
	PrintFailed     PrintPhase = "failed"
)

// PrintStatus is the result of polling a submitted job. Err is set when
// Phase is PrintFailed and carries the failure class.
type PrintStatus struct {
	Phase PrintPhase
	Err   error
}
