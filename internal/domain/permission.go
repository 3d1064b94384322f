package domain

// PermissionState is the platform's notification-authorization state.
//
// The only transitions the application can drive are
// PermissionDefault → PermissionGranted and
// PermissionDefault → PermissionDenied, both via an explicit user-driven
// consent request. PermissionUnsupported is terminal for the session.
// A user can still flip the platform-level permission outside the
// application, which is why the permission manager re-reads the platform
// value on every status call instead of caching it.
type PermissionState string

// Possible permission states
const (
	// PermissionUnsupported means the platform lacks notification capability.
	PermissionUnsupported PermissionState = "unsupported"

	// PermissionDefault means the user has not been asked yet.
	PermissionDefault PermissionState = "default"

	// PermissionDenied means the user explicitly declined. The platform
	// will not re-prompt after an explicit denial.
	PermissionDenied PermissionState = "denied"

	// PermissionGranted means notifications may be displayed.
	PermissionGranted PermissionState = "granted"
)
