package lifecycle

import "context"

// Shutdown phases. Intake stops first, workers drain next, connections close last.
const (
	PhaseIntake = iota
	PhaseWorkers
	PhaseStorage
)

// Hook describes a named shutdown hook run in Phase.
type Hook struct {
	Name  string
	Phase int
	Fn    func(ctx context.Context) error
}
