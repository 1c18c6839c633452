package code

// HTTP状态码.
const (
	// StatusOK - 200: 成功.
	StatusOK = 200
	// StatusCreated - 201: 已创建.
	StatusCreated = 201
	// StatusBadRequest - 400: 请求参数错误.
	StatusBadRequest = 400
	// StatusUnauthorized - 401: 未授权.
	StatusUnauthorized = 401
	// StatusForbidden - 403: 禁止访问.
	StatusForbidden = 403
	// StatusNotFound - 404: 资源不存在.
	StatusNotFound = 404
	// StatusConflict - 409: 状态冲突.
	StatusConflict = 409
	// StatusTooManyRequests - 429: 请求过多.
	StatusTooManyRequests = 429
	// StatusInternalServerError - 500: 服务器内部错误.
	StatusInternalServerError = 500
	// StatusServiceUnavailable - 503: 服务不可用.
	StatusServiceUnavailable = 503
)

// 通用错误码 (100xxx).
const (
	// ErrSuccess - 200: 成功.
	ErrSuccess int = iota + 100000
	// ErrUnknown - 500: 未知错误.
	ErrUnknown
	// ErrBind - 400: 请求参数绑定错误.
	ErrBind
	// ErrValidation - 400: 请求参数验证错误.
	ErrValidation
	// ErrTokenInvalid - 401: 令牌无效.
	ErrTokenInvalid
	// ErrTooManyRequests - 429: 请求频率过高.
	ErrTooManyRequests
	// ErrForbidden - 403: 权限不足.
	ErrForbidden
	// ErrCreated - 201: 已创建.
	ErrCreated
)

// 员工相关错误码 (101xxx).
const (
	// ErrStaffNotFound - 404: 员工不存在.
	ErrStaffNotFound int = iota + 101000
	// ErrStaffPasswordIncorrect - 401: 用户名或密码错误.
	ErrStaffPasswordIncorrect
	// ErrStaffAlreadyExist - 409: 用户名已存在.
	ErrStaffAlreadyExist
)

// 付款相关错误码 (102xxx).
const (
	// ErrInvalidAmount - 400: 金额无效.
	ErrInvalidAmount int = iota + 102000
	// ErrReferenceNotFound - 404: 参考号不存在或已支付.
	ErrReferenceNotFound
	// ErrAlreadySettled - 409: 参考号已结算或未知.
	ErrAlreadySettled
	// ErrReferenceCollision - 400: 参考号冲突，可重试.
	ErrReferenceCollision
	// ErrTooManyReferences - 429: 生成参考号过于频繁.
	ErrTooManyReferences
)

// 住户相关错误码 (103xxx).
const (
	// ErrResidentNotFound - 404: 住户不存在.
	ErrResidentNotFound int = iota + 103000
	// ErrResidentAlreadyExist - 409: 住户或钥匙已存在.
	ErrResidentAlreadyExist
)

// 数据库相关错误码 (105xxx).
const (
	// ErrDatabase - 500: 数据库错误.
	ErrDatabase int = iota + 105000
	// ErrRecordNotFound - 404: 记录不存在.
	ErrRecordNotFound
	// ErrDatabaseUnavailable - 503: 数据库不可用.
	ErrDatabaseUnavailable
)
