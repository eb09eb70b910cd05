package bot

// Command routes.
const (
	CommandStart         = "/start"
	CommandCancel        = "/cancel"
	CommandHelp          = "/help"
	CommandAdmin         = "/admin"
	CommandAddTeacher    = "/add_teacher"
	CommandClearSession  = "/clear_session"
	CommandIsTeacher     = "/is_teacher"
	CommandCreateSubject = "/create_subject"
	CommandMySubjects    = "/my_subjects"
)

// Callback routes. Task actions are split by verb because each verb requires a different role.
const (
	RouteTaskCreate        = "task:create"
	RouteTaskEdit          = "task:edit"
	RouteTaskShowSolutions = "task:show_solutions"
	RouteSolutionsPage     = "solutions_page"
	RouteGrade             = "solution"
	RouteSupport           = "support"
	RouteCancelSupport     = "cancel_support"
)
