package main

import "Jarvis_chat/client/chat-cli/cmd"

func main() {
	cmd.Execute()
}
