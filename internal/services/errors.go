package services

import "errors"

// Error kinds. Handlers map these to status codes with errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrNotAuthorized  = errors.New("not authorized")
	ErrInvalidInput   = errors.New("invalid input")
	ErrAlreadyInState = errors.New("already in requested state")
	ErrDataIntegrity  = errors.New("data integrity violation")
)

// Error is a client-facing failure of one of the kinds above.
type Error struct {
	kind error
	msg  string
}

func newError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// invalidInput reports a payload that failed validation.
func invalidInput(msg string) *Error {
	return newError(ErrInvalidInput, msg)
}

func (e *Error) Error() string { return e.msg }

// Unwrap exposes the kind, so errors.Is(err, ErrNotFound) holds for every
// not-found error.
func (e *Error) Unwrap() error { return e.kind }

// 好友关系
var (
	ErrInvalidTarget         = newError(ErrNotFound, "User not found")
	ErrSelfRequest           = newError(ErrInvalidInput, "Cannot send friend request to yourself")
	ErrDuplicateRelationship = newError(ErrInvalidInput, "Friendship request already exists")
	ErrFriendshipNotFound    = newError(ErrNotFound, "Friendship not found")
	// ErrFriendRequestNotFound is the accept path's not-found error; it names a
	// request because only pending rows can be accepted.
	ErrFriendRequestNotFound = newError(ErrNotFound, "Friend request not found")
	ErrNotReceiver           = newError(ErrNotAuthorized, "Not authorized to accept this request")
	ErrNotParticipant        = newError(ErrNotAuthorized, "Not authorized to remove this friendship")
	ErrAlreadyAccepted       = newError(ErrAlreadyInState, "Friend request already accepted")
	ErrEmptyQuery            = newError(ErrInvalidInput, "Search query is required")
	ErrMissingReceiver       = newError(ErrInvalidInput, "Receiver ID is required")
	ErrPartyMissing          = newError(ErrDataIntegrity, "Friendship party not found")
)

// 帖子
var (
	ErrPostNotFound    = newError(ErrNotFound, "Post not found")
	ErrNotAuthorUpdate = newError(ErrNotAuthorized, "Not authorized to update this post")
	ErrNotAuthorDelete = newError(ErrNotAuthorized, "Not authorized to delete this post")
	ErrAuthorMissing   = newError(ErrDataIntegrity, "Post author not found")
)

// 用户与认证
var (
	ErrEmailTaken         = newError(ErrInvalidInput, "Email already registered")
	ErrUserNotFound       = newError(ErrNotFound, "User not found")
	ErrInvalidCredentials = errors.New("Invalid password")
)
