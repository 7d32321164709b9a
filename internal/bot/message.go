// Package bot runs a bot-messaging client on a background goroutine and
// exposes it to a polling host through a bridge.
//
// The host submits Requests without blocking and calls Process to dispatch
// whatever the worker produced. The worker races the next request against
// the next long-poll result; both feed the same reply queue.
package bot

// Request is an operation submitted by the host. Each request is consumed
// exactly once by the worker.
type Request interface {
	requestName() string
}

// SendText posts a text message. MessageID, when positive, is the message
// being replied to.
type SendText struct {
	ChatID    int64
	MessageID int
	Text      string
}

// SendAudio uploads a local audio file.
type SendAudio struct {
	ChatID int64
	Path   string
}

// SendVoice uploads a local voice note.
type SendVoice struct {
	ChatID int64
	Path   string
}

// GetFile downloads a remote file into BaseDir.
type GetFile struct {
	FileID  string
	BaseDir string
}

// Whoami asks for the bot's own account.
type Whoami struct{}

// Logout logs the bot out of the API server.
type Logout struct{}

// Quit stops the worker.
type Quit struct{}

func (SendText) requestName() string  { return "send_text" }
func (SendAudio) requestName() string { return "send_audio" }
func (SendVoice) requestName() string { return "send_voice" }
func (GetFile) requestName() string   { return "get_file" }
func (Whoami) requestName() string    { return "whoami" }
func (Logout) requestName() string    { return "logout" }
func (Quit) requestName() string      { return "quit" }

// Reply is an outcome produced by the worker: an answer to a request or an
// inbound update.
type Reply interface {
	replyName() string
}

// UserInfo answers Whoami.
type UserInfo struct {
	ID        int64
	FirstName string
	UserName  string
}

// TextMessage is an inbound text message.
type TextMessage struct {
	ChatID    int64
	MessageID int
	Text      string
}

// LocationMessage is an inbound shared location.
type LocationMessage struct {
	ChatID    int64
	Latitude  float64
	Longitude float64
}

// StickerMessage is an inbound sticker.
type StickerMessage struct {
	ChatID int64
	FileID string
	Emoji  string
}

// VoiceMessage is an inbound voice note. Fetch the content with GetFile.
type VoiceMessage struct {
	ChatID       int64
	FileID       string
	FileUniqueID string
	MimeType     string
	Duration     int
	FileSize     int64
}

// AudioMessage is an inbound audio file. Fetch the content with GetFile.
type AudioMessage struct {
	ChatID       int64
	FileID       string
	FileUniqueID string
	MimeType     string
	FileName     string
	Duration     int
	FileSize     int64
	Title        string
}

func (UserInfo) replyName() string        { return "whoami" }
func (TextMessage) replyName() string     { return "text" }
func (LocationMessage) replyName() string { return "location" }
func (StickerMessage) replyName() string  { return "sticker" }
func (VoiceMessage) replyName() string    { return "voice" }
func (AudioMessage) replyName() string    { return "audio" }
