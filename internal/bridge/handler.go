package bridge

// Handler receives everything a background worker produces. Methods are
// invoked synchronously from Service.Drain on the draining goroutine.
type Handler[Rep any] interface {
	OnReply(Rep)
	OnError(msg string)
	OnInfo(msg string)
	OnDebug(msg string)
	OnLog(msg string)
	OnProgress(pct uint8)
}

// BaseHandler implements Handler with no-ops. Embed it to override only the
// callbacks of interest.
type BaseHandler[Rep any] struct{}

func (BaseHandler[Rep]) OnReply(Rep)      {}
func (BaseHandler[Rep]) OnError(string)   {}
func (BaseHandler[Rep]) OnInfo(string)    {}
func (BaseHandler[Rep]) OnDebug(string)   {}
func (BaseHandler[Rep]) OnLog(string)     {}
func (BaseHandler[Rep]) OnProgress(uint8) {}

// Notifier is told, once per delivered message, that the adapter with the
// given instance id has something to drain. It is called from the
// background goroutine and must not block.
type Notifier interface {
	Notify(id uint64)
}

// NotifyFunc adapts a function to Notifier.
type NotifyFunc func(id uint64)

func (f NotifyFunc) Notify(id uint64) { f(id) }

func dispatch[Rep any](h Handler[Rep], r result[Rep]) {
	if !r.isNotice {
		h.OnReply(r.reply)
		return
	}
	switch n := r.notice; n.Kind {
	case NoticeError:
		h.OnError(n.Text)
	case NoticeInfo:
		h.OnInfo(n.Text)
	case NoticeDebug:
		h.OnDebug(n.Text)
	case NoticeLog:
		h.OnLog(n.Text)
	case NoticeProgress:
		h.OnProgress(n.Progress)
	}
}
