package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/kisanbazaar/pkg/chat"
)

const chatHelp = `Commands:
  /who            online users
  /dm <name>      private room with <name>
  /join <room>    switch room (global by default)
  /find <term>    messages whose sender or role matches
  /quit           leave
Anything else is sent to the room.`

// kisan chat [room]
var chatCmd = &cobra.Command{
	Use:   "chat [room]",
	Short: "Join the marketplace chat",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRole(); err != nil {
			return err
		}
		me := application.Auth.Identity()
		c, err := application.DialChat(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()

		out := cmd.OutOrStdout()
		room := chat.GlobalRoom
		if len(args) == 1 {
			room = args[0]
		}

		// Runs on the read loop only; a room switch restarts the count.
		seen, seenRoom := 0, ""
		c.Subscribe(chat.TopicMessages, func(p interface{}) {
			msgs := p.([]chat.Message)
			if r := c.Room(); r != seenRoom || len(msgs) < seen {
				seen, seenRoom = 0, r
			}
			for _, m := range msgs[seen:] {
				printMessage(out, m)
			}
			seen = len(msgs)
		})
		c.Subscribe(chat.TopicTyping, func(p interface{}) {
			if who := p.(string); who != "" && who != me.Name {
				fmt.Fprintf(out, "  %s is typing...\n", who)
			}
		})

		if err := c.JoinRoom(room); err != nil {
			return err
		}
		fmt.Fprintf(out, "Joined %s as %s. /help for commands.\n", room, me.Name)

		lines := make(chan string)
		go func() {
			defer close(lines)
			sc := bufio.NewScanner(cmd.InOrStdin())
			for sc.Scan() {
				lines <- sc.Text()
			}
		}()

		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case <-c.Done():
				return fmt.Errorf("chat: disconnected")
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				next, quit, err := chatLine(out, c, room, me.Name, line)
				if err != nil {
					fmt.Fprintln(out, err)
				}
				if quit {
					return nil
				}
				if next != room {
					room = next
					if err := c.JoinRoom(room); err != nil {
						return err
					}
					fmt.Fprintf(out, "Now in %s\n", room)
				}
			}
		}
	},
}

func printMessage(out io.Writer, m chat.Message) {
	role := string(m.Role)
	if role == "" {
		role = "user"
	}
	fmt.Fprintf(out, "[%s] %s (%s): %s\n", m.Timestamp.Local().Format("15:04"), m.Sender, role, m.Message)
}

// chatLine handles one input line and returns the room to be in afterwards.
func chatLine(out io.Writer, c *chat.Client, room, myName, line string) (next string, quit bool, err error) {
	line = strings.TrimSpace(line)
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "":
		return room, false, nil
	case "/quit", "/exit":
		return room, true, nil
	case "/help":
		fmt.Fprintln(out, chatHelp)
	case "/who":
		users := c.OnlineUsers()
		if len(users) == 0 {
			fmt.Fprintln(out, "No one online")
		}
		for _, u := range users {
			fmt.Fprintf(out, "  %s (%s)\n", u.Name, u.Role)
		}
	case "/dm":
		if arg == "" || arg == myName {
			return room, false, fmt.Errorf("usage: /dm <name of someone else>")
		}
		return chat.PrivateRoomID(myName, arg), false, nil
	case "/join":
		if arg == "" {
			arg = chat.GlobalRoom
		}
		return arg, false, nil
	case "/find":
		found := chat.Filter(c.Messages(), arg)
		if len(found) == 0 {
			fmt.Fprintln(out, "No messages found.")
		}
		for _, m := range found {
			printMessage(out, m)
		}
	default:
		return room, false, c.Send(room, line)
	}
	return room, false, nil
}
