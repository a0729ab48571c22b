package domain

// ErrorCode is a routing error reported to the requester in an error frame.
type ErrorCode string

const (
	ErrRoomNotFound        ErrorCode = "ROOM_NOT_FOUND"
	ErrTargetUserIDMissing ErrorCode = "TARGET_USER_ID_MISSING"
	ErrUserNotFound        ErrorCode = "USER_NOT_FOUND"
	ErrUserOffline         ErrorCode = "USER_OFFLINE"
)

func (e ErrorCode) Error() string { return string(e) }
