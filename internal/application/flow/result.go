package flow

// FailureKind names the reason a flow operation did not succeed.
// Handlers map kinds to HTTP statuses; the kind set is the full error
// taxonomy of the subsystem.
type FailureKind string

const (
	FailureNone            FailureKind = ""
	AlreadyRegistered      FailureKind = "already_registered"
	AccountCreationFailed  FailureKind = "account_creation_failed"
	DeliveryFailed         FailureKind = "delivery_failed"
	InvalidCredentials     FailureKind = "invalid_credentials"
	UnknownIdentity        FailureKind = "unknown_identity"
	CredentialUpdateFailed FailureKind = "credential_update_failed"
	CodeInvalid            FailureKind = "code_invalid"
	CodeExpired            FailureKind = "code_expired"
	CodeNotFound           FailureKind = "code_not_found"
	InternalFailure        FailureKind = "internal"
)

// Result is the tagged outcome of a flow operation. Every entry point
// returns one — failures never propagate to the transport layer as bare
// errors, so no failure is silently swallowed without a message.
type Result struct {
	Success  bool
	Kind     FailureKind
	Message  string
	OTPSent  bool
	Verified bool
	Bearer   string
}

func success(message string) Result {
	return Result{Success: true, Message: message}
}

func failure(kind FailureKind, message string) Result {
	return Result{Success: false, Kind: kind, Message: message}
}
