package application

import "context"

// ChatCompleter generates the mascot's reply to one user utterance.
type ChatCompleter interface {
	Complete(ctx context.Context, userText string) (string, error)
}
