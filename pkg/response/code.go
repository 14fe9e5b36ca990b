package response

// 业务状态码
const (
	CodeSuccess = 0
	CodeError   = 1

	// 认证与权限 100xx
	ErrAuthFailed      = 10003
	ErrTokenInvalid    = 10004
	ErrNoPermission    = 10005
	ErrProfileNotFound = 10006

	// 订单模块 200xx
	ErrOrderNotFound  = 20001
	ErrOrderInvalid   = 20002
	ErrOrderForbidden = 20003

	// 支付模块 300xx
	ErrCheckoutFailed   = 30001
	ErrRefundNotAllowed = 30002
	ErrPaymentProvider  = 30003

	// 商品目录 400xx
	ErrProductNotFound = 40001

	// 通知 410xx
	ErrNotificationNotFound = 41001

	// 系统错误 500xx
	ErrServerInternal  = 50001
	ErrInvalidParam    = 50002
	ErrTooManyRequests = 50003
)
