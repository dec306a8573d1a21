package cli

// View identifies the active screen. Transitions:
//
//	login -> dashboard            (requires a validated session)
//	dashboard -> upload | detail
//	upload -> dashboard           (on success or cancellation)
//	detail -> dashboard           (always available)
//
// A session-expired error in any screen forces login, discarding whatever
// flow state was in progress.
type View string

const (
	ViewLogin     View = "login"
	ViewDashboard View = "dashboard"
	ViewUpload    View = "upload"
	ViewDetail    View = "detail"
)
