package dealer

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/frost"
)

func New() *cobra.Command {
	var threshold int
	var participants int

	cmd := &cobra.Command{
		Use:   "dealer",
		Short: "Deals a fresh t-of-n threshold key for development setups",
		Run: func(cmd *cobra.Command, args []string) {
			deal, err := frost.DealShares(threshold, participants)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to deal key shares")
			}

			out, err := json.MarshalIndent(deal, "", "  ")
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to encode the deal")
			}

			fmt.Println(string(out))
		},
	}

	cmd.Flags().IntVarP(&threshold, "threshold", "t", 2, "Number of signers required to produce a signature")
	cmd.Flags().IntVarP(&participants, "participants", "n", 3, "Total number of participants receiving shares")

	return cmd
}
