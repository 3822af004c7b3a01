package driven

import "context"

// Messenger delivers notification text. Text is markdown; adapters convert
// it to whatever markup their transport accepts.
type Messenger interface {
	SendText(ctx context.Context, text string) error
	// SendPhoto sends the image at path with text as its caption.
	SendPhoto(ctx context.Context, path, caption string) error
}
