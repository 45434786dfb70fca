package ipc

// ExitRequest asks the coordinator to stop.
type ExitRequest struct{}

// ExitResponse is the empty acknowledgment of an exit request.
type ExitResponse struct{}

// StatusRequest fetches coordinator status.
type StatusRequest struct{}

// StatusResponse describes where the coordinator is in its boot sequence.
type StatusResponse struct {
	PID         int    `json:"pid"`
	RunID       string `json:"run_id"`
	Cursor      int    `json:"cursor"`
	Step        string `json:"step"`
	Terminating bool   `json:"terminating"`
	HasStartup  bool   `json:"has_startup"`
	ConfigDB    string `json:"config_db"`
	RunningDB   string `json:"running_db"`
}

// Controller is the coordinator surface the control channel drives.
// Implementations must be safe to call from server goroutines.
type Controller interface {
	RequestExit()
	Status() StatusResponse
}
