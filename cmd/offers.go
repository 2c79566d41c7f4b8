package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/4ERNIY-LOSOS/MasterDom/internal/domain"
)

var offersType string

var offersCmd = &cobra.Command{
	Use:   "offers",
	Short: "Browse marketplace offers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		offers, err := app.svc.Backend().ListOffers(cmd.Context(), domain.OfferType(offersType))
		if err != nil {
			return err
		}
		if len(offers) == 0 {
			fmt.Println("No offers found.")
			return nil
		}

		for _, offer := range offers {
			fmt.Printf("%s  %s\n", nameStyle.Render(offer.Title),
				mutedStyle.Render(string(offer.OfferType)))
			fmt.Printf("  by %s on %s\n", offer.AuthorFirstName,
				offer.CreatedAt.Local().Format("2006-01-02"))
			if offer.Description != "" {
				fmt.Printf("  %s\n", offer.Description)
			}
			fmt.Printf("  %s\n\n", mutedStyle.Render(offer.ID))
		}
		return nil
	},
}

var initiateCmd = &cobra.Command{
	Use:   "initiate <offer-id> <recipient-id>",
	Short: "Start a conversation about an offer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		if _, err := app.svc.Session().Require(); err != nil {
			return fmt.Errorf("not signed in; run 'masterdom login' first")
		}

		conversationID, err := app.svc.Backend().InitiateChat(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Conversation ready: %s\n", conversationID)
		fmt.Printf("Open it with: masterdom chat %s\n", conversationID)
		return nil
	},
}

func init() {
	offersCmd.Flags().StringVar(&offersType, "type", "", "Filter by offer type (request_for_service or service_offer)")
	rootCmd.AddCommand(offersCmd)
	rootCmd.AddCommand(initiateCmd)
}
