package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestNewMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     NewMessage
		wantErr error
		invalid bool
	}{
		{name: "text only", msg: NewMessage{SenderID: "a", ReceiverID: "b", Text: strPtr("hi")}},
		{name: "image only", msg: NewMessage{SenderID: "a", ReceiverID: "b", ImageURL: strPtr("/media/users/a/1-cat.png")}},
		{name: "empty text and no image", msg: NewMessage{SenderID: "a", ReceiverID: "b", Text: strPtr("")}, wantErr: ErrEmptyMessage},
		{name: "nothing at all", msg: NewMessage{SenderID: "a", ReceiverID: "b"}, wantErr: ErrEmptyMessage},
		{name: "missing receiver", msg: NewMessage{SenderID: "a", Text: strPtr("hi")}, invalid: true},
		{name: "traversal in image url", msg: NewMessage{SenderID: "a", ReceiverID: "b", ImageURL: strPtr("/media/../etc/passwd")}, invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.invalid:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsSafePath(t *testing.T) {
	assert.True(t, IsSafePath("users/abc/123-photo.png"))
	assert.False(t, IsSafePath(""))
	assert.False(t, IsSafePath("../secret"))
	assert.False(t, IsSafePath("/etc/passwd"))
	assert.False(t, IsSafePath("users/./x.png"))
	assert.False(t, IsSafePath(`users\x.png`))
}

func TestProfileUpdate_Empty(t *testing.T) {
	assert.True(t, ProfileUpdate{}.Empty())
	assert.False(t, ProfileUpdate{FullName: strPtr("Ada")}.Empty())
}
