package state

// validTransitions contains the permitted transitions between conversation states. Moving to idle is always allowed.
var validTransitions = map[State][]State{
	StateIdle: {
		StateSubjectName,
		StateTaskName,
		StateTaskEditName,
		StateSolutionFile,
		StateSupportMessage,
	},
	StateSubjectName: {
		StateSubjectDescription,
	},
	StateSubjectDescription: {
		StateAwaitingOptionConfirm,
	},
	StateTaskName: {
		StateTaskDescription,
	},
	StateTaskDescription: {
		StateTaskDueDate,
	},
	StateTaskDueDate: {
		StateAwaitingOptionConfirm,
	},
	StateTaskEditName: {
		StateTaskEditDescription,
	},
	StateTaskEditDescription: {
		StateTaskEditDueDate,
	},
	StateTaskEditDueDate: {
		StateAwaitingOptionConfirm,
	},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
func IsTransitionAllowed(from, to State) bool {
	if to == StateIdle || from == to {
		return true
	}

	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, state := range allowed {
		if state == to {
			return true
		}
	}

	return false
}
