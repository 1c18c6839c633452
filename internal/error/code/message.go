package code

// 错误码消息映射
var codeMessageMap = map[int]string{
	// 通用错误码
	ErrSuccess:         "success",
	ErrCreated:         "created",
	ErrUnknown:         "internal server error",
	ErrBind:            "invalid request body",
	ErrValidation:      "invalid request parameters",
	ErrTokenInvalid:    "invalid or missing token",
	ErrTooManyRequests: "too many requests",
	ErrForbidden:       "insufficient permissions",

	// 员工相关错误码
	ErrStaffNotFound:          "staff not found",
	ErrStaffPasswordIncorrect: "invalid username or password",
	ErrStaffAlreadyExist:      "username already exists",

	// 付款相关错误码
	ErrInvalidAmount:      "amount must be a positive number",
	ErrReferenceNotFound:  "payment reference not found or already paid",
	ErrAlreadySettled:     "payment reference already settled or unknown",
	ErrReferenceCollision: "payment reference collision, please retry",
	ErrTooManyReferences:  "too many payment references requested, try again later",

	// 住户相关错误码
	ErrResidentNotFound:     "resident not found",
	ErrResidentAlreadyExist: "national id or key number already registered",

	// 数据库相关错误码
	ErrDatabase:            "database error",
	ErrRecordNotFound:      "record not found",
	ErrDatabaseUnavailable: "database unavailable",
}

// 错误码HTTP状态码映射
var codeStatusMap = map[int]int{
	// 通用错误码
	ErrSuccess:         StatusOK,
	ErrCreated:         StatusCreated,
	ErrUnknown:         StatusInternalServerError,
	ErrBind:            StatusBadRequest,
	ErrValidation:      StatusBadRequest,
	ErrTokenInvalid:    StatusUnauthorized,
	ErrTooManyRequests: StatusTooManyRequests,
	ErrForbidden:       StatusForbidden,

	// 员工相关错误码
	ErrStaffNotFound:          StatusNotFound,
	ErrStaffPasswordIncorrect: StatusUnauthorized,
	ErrStaffAlreadyExist:      StatusConflict,

	// 付款相关错误码
	ErrInvalidAmount:      StatusBadRequest,
	ErrReferenceNotFound:  StatusNotFound,
	ErrAlreadySettled:     StatusConflict,
	ErrReferenceCollision: StatusBadRequest,
	ErrTooManyReferences:  StatusTooManyRequests,

	// 住户相关错误码
	ErrResidentNotFound:     StatusNotFound,
	ErrResidentAlreadyExist: StatusConflict,

	// 数据库相关错误码
	ErrDatabase:            StatusInternalServerError,
	ErrRecordNotFound:      StatusNotFound,
	ErrDatabaseUnavailable: StatusServiceUnavailable,
}

// GetMessage 获取错误码对应的消息
func GetMessage(code int) string {
	if msg, ok := codeMessageMap[code]; ok {
		return msg
	}
	return "unknown error"
}

// GetStatus 获取错误码对应的HTTP状态码
func GetStatus(code int) int {
	if status, ok := codeStatusMap[code]; ok {
		return status
	}
	return StatusInternalServerError
}
