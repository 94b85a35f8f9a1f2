package enums

// SessionState is a state of the client-side session machine.
type SessionState string

const (
	SessionStateUnauthenticated SessionState = "unauthenticated"
	SessionStateBootstrapping   SessionState = "bootstrapping"
	SessionStateAuthenticated   SessionState = "authenticated"
	SessionStateLoggingOut      SessionState = "logging_out"
)

// TransitionReason says what moved the session into its current state.
type TransitionReason string

const (
	TransitionBootstrap      TransitionReason = "bootstrap"
	TransitionLogin          TransitionReason = "login"
	TransitionRegister       TransitionReason = "register"
	TransitionLogout         TransitionReason = "logout"
	TransitionSessionExpired TransitionReason = "session_expired"
)
