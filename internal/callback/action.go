// Package callback encodes inline-button actions into compact stateless tokens and decodes them back.
package callback

// Prefixes identify action variants on the wire.
const (
	PrefixTask          = "task"
	PrefixSolution      = "solution"
	PrefixSupport       = "support"
	PrefixCancelSupport = "cancel_support"
	PrefixSolutionsPage = "solutions_page"
)

// Action is one of the closed set of callback variants.
type Action interface {
	Prefix() string
	encodeFields(w *fieldWriter)
}

// TaskVerb is what a TaskAction asks for.
type TaskVerb string

const (
	// TaskCreate starts a solution submission for the task.
	TaskCreate TaskVerb = "create"
	// TaskEdit starts the task edit flow.
	TaskEdit TaskVerb = "edit"
	// TaskShowSolutions lists the task's solutions to its teacher.
	TaskShowSolutions TaskVerb = "show_solutions"
)

// Valid reports whether v is a known verb.
func (v TaskVerb) Valid() bool {
	switch v {
	case TaskCreate, TaskEdit, TaskShowSolutions:
		return true
	default:
		return false
	}
}

// TaskAction addresses a task inside a subject.
type TaskAction struct {
	SubjectID int64
	TaskID    int64
	Action    TaskVerb
}

// SolutionAction grades a solution.
type SolutionAction struct {
	SolutionID int64
	Grade      int
}

// SupportAction opens a support thread with a counterpart.
type SupportAction struct {
	Mode          string
	CounterpartID int64
	AsInitiator   bool
}

// CancelSupportAction closes the open support thread with a counterpart.
type CancelSupportAction struct {
	CounterpartID int64
}

// SolutionsPageAction turns the page of a task's solution list.
type SolutionsPageAction struct {
	SubjectID int64
	TaskID    int64
	Page      int
}

func (TaskAction) Prefix() string          { return PrefixTask }
func (SolutionAction) Prefix() string      { return PrefixSolution }
func (SupportAction) Prefix() string       { return PrefixSupport }
func (CancelSupportAction) Prefix() string { return PrefixCancelSupport }
func (SolutionsPageAction) Prefix() string { return PrefixSolutionsPage }

func (a TaskAction) encodeFields(w *fieldWriter) {
	w.Int(a.SubjectID)
	w.Int(a.TaskID)
	if !a.Action.Valid() {
		w.fail("unknown task action %q", a.Action)
		return
	}
	w.String(string(a.Action))
}

func (a SolutionAction) encodeFields(w *fieldWriter) {
	w.Int(a.SolutionID)
	w.Int(int64(a.Grade))
}

func (a SupportAction) encodeFields(w *fieldWriter) {
	w.String(a.Mode)
	w.Int(a.CounterpartID)
	w.Bool(a.AsInitiator)
}

func (a CancelSupportAction) encodeFields(w *fieldWriter) {
	w.Int(a.CounterpartID)
}

func (a SolutionsPageAction) encodeFields(w *fieldWriter) {
	w.Int(a.SubjectID)
	w.Int(a.TaskID)
	w.Int(int64(a.Page))
}

type decoder struct {
	arity  int
	decode func(r *fieldReader) Action
}

// decoders is keyed by prefix; arity is the exact number of fields after the prefix.
var decoders = map[string]decoder{
	PrefixTask: {arity: 3, decode: func(r *fieldReader) Action {
		a := TaskAction{SubjectID: r.Int(), TaskID: r.Int(), Action: TaskVerb(r.String())}
		if r.err == nil && !a.Action.Valid() {
			r.fail("unknown task action %q", a.Action)
		}
		return a
	}},
	PrefixSolution: {arity: 2, decode: func(r *fieldReader) Action {
		return SolutionAction{SolutionID: r.Int(), Grade: int(r.Int())}
	}},
	PrefixSupport: {arity: 3, decode: func(r *fieldReader) Action {
		return SupportAction{Mode: r.String(), CounterpartID: r.Int(), AsInitiator: r.Bool()}
	}},
	PrefixCancelSupport: {arity: 1, decode: func(r *fieldReader) Action {
		return CancelSupportAction{CounterpartID: r.Int()}
	}},
	PrefixSolutionsPage: {arity: 3, decode: func(r *fieldReader) Action {
		return SolutionsPageAction{SubjectID: r.Int(), TaskID: r.Int(), Page: int(r.Int())}
	}},
}
