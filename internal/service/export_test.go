package service

// ExportedRunningGuard exposes the guard to service_test.
type ExportedRunningGuard = runningJobsGuard
