package reservation

// Code discriminates the outcome of every reservation operation.  Store
// failures surface verbatim as CodeDBError; state-machine precondition
// violations each carry their own code; invalid inputs collapse to
// CodeNotFound.
type Code uint8

const (
	CodeOK Code = iota
	CodeNotFound
	CodeAlreadySold
	CodeHeldByOther
	CodeHoldExistsSameUser
	CodeInvalidToken
	CodeHoldExpired
	CodeDBError
	CodeInternalErr
)

// String returns the canonical name of the code.
func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeNotFound:
		return "NOT_FOUND"
	case CodeAlreadySold:
		return "ALREADY_SOLD"
	case CodeHeldByOther:
		return "HELD_BY_OTHER"
	case CodeHoldExistsSameUser:
		return "HOLD_EXISTS_SAME_USER"
	case CodeInvalidToken:
		return "INVALID_TOKEN"
	case CodeHoldExpired:
		return "HOLD_EXPIRED"
	case CodeDBError:
		return "DB_ERROR"
	case CodeInternalErr:
		return "INTERNAL_ERR"
	}
	return "UNKNOWN"
}

// HoldResult is the outcome of PlaceHold.  Token, ExpiresUnix and
// PriceCents are valid when Code is CodeOK or CodeHoldExistsSameUser.
type HoldResult struct {
	Code        Code
	PriceCents  int32
	ExpiresUnix int64
	Token       []byte
}

// ConfirmResult is the outcome of Confirm.  OrderID and PriceCents are
// valid when Code is CodeOK.
type ConfirmResult struct {
	Code       Code
	OrderID    string
	PriceCents int32
}
