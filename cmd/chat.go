package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/4ERNIY-LOSOS/MasterDom/internal/domain"
	"github.com/4ERNIY-LOSOS/MasterDom/internal/service"
)

var chatMessage string

var (
	ownStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	otherStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)
)

var chatCmd = &cobra.Command{
	Use:   "chat <conversation-id>",
	Short: "Read a conversation and optionally send a message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		claims, err := app.svc.Session().Require()
		if err != nil {
			return fmt.Errorf("not signed in; run 'masterdom login' first")
		}

		ctl := app.svc.NewController()
		ch := ctl.Select(cmd.Context(), args[0])
		if err := waitForOpen(ch, app.cfg.RequestTimeout); err != nil {
			return err
		}
		counterpart, _ := ctl.Counterpart()
		detail := ch.Detail()
		fmt.Printf("Conversation with %s about %q\n\n",
			otherStyle.Render(displayName(counterpart)), detail.OfferTitle)

		for _, msg := range ch.Messages() {
			printMessage(msg, claims.UserID)
		}

		if chatMessage != "" {
			ctl.SetDraft(chatMessage)
			sent, err := ctl.Send(cmd.Context())
			if err != nil {
				return fmt.Errorf("message not sent (your text is kept): %w", err)
			}
			fmt.Println()
			printMessage(*sent, claims.UserID)
		}
		return nil
	},
}

// waitForOpen blocks until the channel leaves Loading, or gives up.
func waitForOpen(ch *service.Channel, timeout time.Duration) error {
	done := make(chan service.ChannelEvent, 4)
	ch.Subscribe(func(ev service.ChannelEvent) {
		select {
		case done <- ev:
		default:
		}
	})
	deadline := time.After(timeout + time.Second)
	for {
		switch ch.State() {
		case domain.ChannelStateReady:
			return nil
		case domain.ChannelStateError:
			return ch.Err()
		}
		select {
		case <-done:
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			return fmt.Errorf("timed out opening conversation")
		}
	}
}

func printMessage(msg domain.Message, selfID string) {
	style := otherStyle
	name := msg.SenderFirstName
	if msg.SenderID == selfID {
		style = ownStyle
		name = "you"
	}
	fmt.Printf("%s %s  %s\n", mutedStyle.Render(msg.CreatedAt.Local().Format("15:04")),
		style.Render(name+":"), msg.Content)
}

func displayName(p domain.Participant) string {
	if p.FirstName == "" {
		return "your counterpart"
	}
	return p.FirstName
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Send this message after showing the history")
	rootCmd.AddCommand(chatCmd)
}
