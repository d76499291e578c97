package errorx

// CodeEntry 表示一个错误码 + 默认文案。
// 建议只在这里集中定义，业务用变量名，不直接写裸 code。
type CodeEntry struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// -------------------- 出错模块 --------------------

var (
	ServiceDefault = CodeEntry{Code: 1, Message: "unknown"}
	ServiceDaemon  = CodeEntry{Code: 2, Message: "xray-daemon"} // UDP 上报
	ServiceCodec   = CodeEntry{Code: 3, Message: "codec"}       // hex / id / json 编解码
	ServiceTrace   = CodeEntry{Code: 4, Message: "tracex"}
)

// -------------------- 错误类别（系统 / 业务） --------------------

var (
	ErrTypeSys = CodeEntry{Code: 4, Message: "系统错误"}
	ErrTypeBiz = CodeEntry{Code: 5, Message: "业务错误"}
)

// -------------------- 通用错误 --------------------

var (
	ErrDefault = CodeEntry{Code: 1000, Message: "未知错误"}

	// ErrAddressFormat daemon 地址无法解析
	ErrAddressFormat = CodeEntry{Code: 1001, Message: "invalid daemon address"}
	// ErrIO socket bind / connect / send 失败
	ErrIO = CodeEntry{Code: 1002, Message: "socket io failed"}
	// ErrSerialization payload 无法编码成 JSON
	ErrSerialization = CodeEntry{Code: 1003, Message: "serialize payload failed"}
	// ErrDecode hex 文本非法
	ErrDecode = CodeEntry{Code: 1004, Message: "invalid hex"}
	// ErrInvalidFormat trace id / segment id / trace header 文本不符合格式
	ErrInvalidFormat = CodeEntry{Code: 1005, Message: "invalid format"}
)
