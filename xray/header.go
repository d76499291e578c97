package xray

// Header 是每个 UDP 包开头的固定帧头，daemon 读到第一个换行后按 JSON 解析剩余部分
const Header = `{"format": "json", "version": 1}` + "\n"

var headerBytes = []byte(Header)

// HeaderBytes 返回帧头的一份拷贝
func HeaderBytes() []byte {
	return append([]byte(nil), headerBytes...)
}
