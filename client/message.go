// File: client/message.go
// Author: momentics <momentics@gmail.com>

package client

import "time"

// TimeLayout stamps every chat and datagram message.
const TimeLayout = "2006-01-02 15:04:05"

// QuitCommand ends an interactive session.
const QuitCommand = "quit"

// FormatMessage renders "<time>：\n<nick>：<text>". The separators are
// full-width colons.
func FormatMessage(t time.Time, nick, text string) string {
	return t.Format(TimeLayout) + "：\n" + nick + "：" + text
}
