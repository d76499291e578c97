package logx

const (
	TagUndef        = "undef"
	TagRequestIn    = "request_in"
	TagRequestOut   = "request_out"
	TagAddrFallback = "addr_fallback"
	TagSegmentSend  = "segment_send"
	TagSegmentDrop  = "segment_drop"

	Cost = "cost"
	Msg  = "msg"
	Err  = "err"

	Remote = "remote"
	Method = "method"
	Path   = "path"
	Query  = "query"
	Status = "status"

	Address   = "address"
	Fallback  = "fallback"
	Size      = "size"
	TraceID   = "trace_id"
	SegmentID = "segment_id"
	Name      = "name"
	Sampled   = "sampled"
)
