package errors

var (
	// Domain errors used across service and handlers.
	ErrEmptyMessage      = InvalidArg("message needs content or at least one attachment")
	ErrMessageNotFound   = NotFound("message not found or not yours")
	ErrNotGroupMember    = Forbidden("you are not a member of this group")
	ErrGroupNotFound     = NotFound("group not found")
	ErrUserNotFound      = NotFound("user not found")
	ErrBadConversation   = InvalidArg("conversation type must be direct or group")
	ErrTokenNotFound     = NotFound("device token not found")
	ErrMissingCredential = Unauthorized("missing or invalid credential")
)

func ErrSendFailed(cause error) error {
	return Wrap(CodeInternal, "failed to send message", cause)
}

func ErrQueryFailed(cause error) error {
	return Wrap(CodeInternal, "database query failed", cause)
}
