// Package discord is the chat surface of the bot. Renderer posts polls as
// embeds with vote buttons and freezes them on conclusion. Router turns
// prefix messages, slash commands and button presses into calls on the poll
// manager and answers users. Bot ties both to the gateway session.
package discord
