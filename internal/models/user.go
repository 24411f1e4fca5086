// internal/models/user.go
package models

// User is the slice of the user directory this subsystem consumes: contact
// points only. TelegramUsername is stored lower-cased; TelegramChatID is 0
// until the account is linked via the bot's /link command.
type User struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email,omitempty"`
	TelegramUsername string `json:"telegramUsername,omitempty"`
	TelegramChatID   int64  `json:"telegramChatId,omitempty"`
	Role             string `json:"role"`
}

// HasEmail reports whether the EMAIL transport can reach this user.
func (u *User) HasEmail() bool {
	return u.Email != ""
}

// HasChatHandle reports whether the user set a Telegram username.
func (u *User) HasChatHandle() bool {
	return u.TelegramUsername != ""
}

// IsChatLinked reports whether a chat id was linked for this user.
func (u *User) IsChatLinked() bool {
	return u.TelegramChatID != 0
}
