package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/4ERNIY-LOSOS/MasterDom/internal/session"
)

var (
	// Styles
	nameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	topicStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List your conversations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		dir := app.svc.NewDirectory()
		if err := dir.Refresh(cmd.Context()); err != nil {
			if errors.Is(err, session.ErrUnauthenticated) {
				return fmt.Errorf("not signed in; run 'masterdom login' first")
			}
			return err
		}

		conversations := dir.Conversations()
		if len(conversations) == 0 {
			fmt.Println("No conversations yet.")
			return nil
		}

		for _, convo := range conversations {
			fmt.Printf("%s  %s\n", nameStyle.Render(convo.OtherParticipantName),
				mutedStyle.Render(convo.LastMessageAt.Local().Format("2006-01-02 15:04")))
			fmt.Printf("  %s\n", topicStyle.Render(convo.OfferTitle))
			fmt.Printf("  %s\n", convo.LastMessageContent)
			fmt.Printf("  %s\n\n", mutedStyle.Render(convo.ConversationID))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatsCmd)
}
