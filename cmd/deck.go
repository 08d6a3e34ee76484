package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	app "github.com/okian/entalk/internal/app"
	"github.com/okian/entalk/internal/config"
	"github.com/okian/entalk/internal/domain/model"
)

func newDeckCmd(conf func() *config.Config) *cobra.Command {
	deck := &cobra.Command{
		Use:   "deck",
		Short: "Generate or inspect decks",
	}

	var location, occasion string
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Generate and store a deck for a location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, conf(), func(svc *app.Service) error {
				d, err := svc.GenerateDeck(cmd.Context(), location, occasion)
				if err != nil {
					return err
				}
				return printDeck(cmd.OutOrStdout(), d)
			})
		},
	}
	generate.Flags().StringVar(&location, "location", "", "location id")
	generate.Flags().StringVar(&occasion, "occasion", "", "occasion id")
	_ = generate.MarkFlagRequired("location")
	_ = generate.MarkFlagRequired("occasion")

	var code string
	var asJSON bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Show the deck issued under an access code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, conf(), func(svc *app.Service) error {
				d, err := svc.DeckByAccessCode(cmd.Context(), code)
				if errors.Is(err, app.ErrDeckNotFound) {
					return fmt.Errorf("no deck with access code %q", code)
				}
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(d)
				}
				return printDeck(cmd.OutOrStdout(), d)
			})
		},
	}
	show.Flags().StringVar(&code, "code", "", "access code")
	show.Flags().BoolVar(&asJSON, "json", false, "print the deck as JSON")
	_ = show.MarkFlagRequired("code")

	deck.AddCommand(generate, show)
	return deck
}

func newSeedCmd(conf func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default locations on an empty store and list them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := *conf()
			cfg.SeedLocations = true
			return withService(cmd, &cfg, func(svc *app.Service) error {
				locs, err := svc.Locations(cmd.Context())
				if err != nil {
					return err
				}
				return printLocations(cmd.OutOrStdout(), locs)
			})
		},
	}
}

// withService runs fn against a started service and stops it afterwards.
func withService(cmd *cobra.Command, cfg *config.Config, fn func(*app.Service) error) error {
	svc, err := newService(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	if err := svc.Start(cmd.Context()); err != nil {
		return err
	}
	defer svc.Stop()
	return fn(svc)
}

func printDeck(w io.Writer, d model.HydratedDeck) error {
	fmt.Fprintf(w, "Deck %s\n", d.ID)
	fmt.Fprintf(w, "Access code: %s\n", d.AccessCode)
	fmt.Fprintf(w, "Location: %s  Occasion: %s  Active: %t\n\n", d.LocationID, d.OccasionID, d.Active)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCATEGORY\tPHASE\tNEW\tQUESTION")
	for i, q := range d.Questions {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\n", i+1, q.Category, q.Phase, q.IsNovelty, q.Text)
	}
	return tw.Flush()
}

func printLocations(w io.Writer, locs []model.Location) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDAY")
	for _, l := range locs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", l.ID, l.Name, l.Weekday)
	}
	return tw.Flush()
}
