package auth

type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindValidation
	KindAuth
	KindState
	KindStorage
)

type Outcome int

const (
	OutcomeCreated Outcome = iota + 1
	OutcomeAuthenticated
	OutcomeLoggedOut
	OutcomeNotLoggedIn
	OutcomeVerified
	OutcomeVerificationSent
	OutcomeResetRequested
	OutcomePasswordReset

	OutcomeInvalidInput
	OutcomeInvalidEmail
	OutcomeWeakPassword
	OutcomeDuplicateEmail
	OutcomeInvalidCredentials
	OutcomeRateLimited
	OutcomeTokenInvalid
	OutcomeTokenExpired
	OutcomeAlreadyVerified
	OutcomeSessionInvalid
	OutcomeServerError
)

var outcomeNames = map[Outcome]string{
	OutcomeCreated:            "created",
	OutcomeAuthenticated:      "authenticated",
	OutcomeLoggedOut:          "logged_out",
	OutcomeNotLoggedIn:        "not_logged_in",
	OutcomeVerified:           "verified",
	OutcomeVerificationSent:   "verification_sent",
	OutcomeResetRequested:     "reset_requested",
	OutcomePasswordReset:      "password_reset",
	OutcomeInvalidInput:       "invalid_input",
	OutcomeInvalidEmail:       "invalid_email",
	OutcomeWeakPassword:       "weak_password",
	OutcomeDuplicateEmail:     "duplicate_email",
	OutcomeInvalidCredentials: "invalid_credentials",
	OutcomeRateLimited:        "rate_limited",
	OutcomeTokenInvalid:       "token_invalid",
	OutcomeTokenExpired:       "token_expired",
	OutcomeAlreadyVerified:    "already_verified",
	OutcomeSessionInvalid:     "session_invalid",
	OutcomeServerError:        "server_error",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

func (o Outcome) Kind() ErrorKind {
	switch o {
	case OutcomeInvalidInput, OutcomeInvalidEmail, OutcomeWeakPassword, OutcomeDuplicateEmail:
		return KindValidation
	case OutcomeInvalidCredentials, OutcomeRateLimited, OutcomeTokenInvalid, OutcomeTokenExpired, OutcomeAlreadyVerified:
		return KindAuth
	case OutcomeSessionInvalid:
		return KindState
	case OutcomeServerError:
		return KindStorage
	}
	return KindNone
}

// Result is what every Service call returns. Message is safe to show to the caller.
type Result struct {
	Outcome     Outcome
	Message     string
	UserID      string
	User        *User
	Session     *Session
	WasLoggedIn bool
}

func (r Result) Kind() ErrorKind { return r.Outcome.Kind() }

func (r Result) OK() bool { return r.Kind() == KindNone }

func fail(o Outcome, msg string) Result {
	return Result{Outcome: o, Message: msg}
}
