package domain

type NoticeLevel string

const (
	NoticeStatus  NoticeLevel = "status"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is an inline message shown to the user after an action.
type Notice struct {
	Level NoticeLevel `json:"level"`
	Text  string      `json:"text"`
}
