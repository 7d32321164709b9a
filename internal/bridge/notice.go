package bridge

import "fmt"

// NoticeKind classifies an out-of-band message from a background worker.
type NoticeKind uint8

const (
	NoticeError NoticeKind = iota
	NoticeInfo
	NoticeDebug
	NoticeLog
	NoticeProgress
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeError:
		return "error"
	case NoticeInfo:
		return "info"
	case NoticeDebug:
		return "debug"
	case NoticeLog:
		return "log"
	case NoticeProgress:
		return "progress"
	default:
		return fmt.Sprintf("notice(%d)", uint8(k))
	}
}

// Notice is a message that is not a reply: a diagnostic or a progress
// update. Progress is only meaningful for NoticeProgress and is at most 100.
type Notice struct {
	Kind     NoticeKind
	Text     string
	Progress uint8
}

func ErrorNotice(text string) Notice { return Notice{Kind: NoticeError, Text: text} }
func InfoNotice(text string) Notice  { return Notice{Kind: NoticeInfo, Text: text} }
func DebugNotice(text string) Notice { return Notice{Kind: NoticeDebug, Text: text} }
func LogNotice(text string) Notice   { return Notice{Kind: NoticeLog, Text: text} }

// ProgressNotice clamps pct to 100.
func ProgressNotice(pct uint8) Notice {
	return Notice{Kind: NoticeProgress, Progress: min(pct, 100)}
}

func (n Notice) String() string {
	if n.Kind == NoticeProgress {
		return fmt.Sprintf("progress %d%%", n.Progress)
	}
	return n.Kind.String() + ": " + n.Text
}
