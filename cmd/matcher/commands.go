package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/neuraestate/property-matcher/internal/app"
	"github.com/neuraestate/property-matcher/internal/config"
	"github.com/neuraestate/property-matcher/internal/listing"
	"github.com/neuraestate/property-matcher/internal/maps"
	"github.com/neuraestate/property-matcher/internal/model"
	"github.com/neuraestate/property-matcher/internal/service"
	"github.com/neuraestate/property-matcher/internal/utils"
)

func turnCommand() *cli.Command {
	return &cli.Command{
		Name:  "turn",
		Usage: "Run one conversation turn against a state file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "state",
				Aliases: []string{"s"},
				Usage:   "Read and write conversation state from `FILE`",
				Value:   "conversation.json",
			},
			&cli.StringFlag{
				Name:     "message",
				Aliases:  []string{"m"},
				Usage:    "User message for this turn",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:    "persona",
				Aliases: []string{"p"},
				Usage:   "Persona keys to run (default: all)",
			},
		},
		Action: runTurn,
	}
}

func runTurn(c *cli.Context) error {
	components, err := loadApp(c)
	if err != nil {
		return err
	}
	defer components.Close()

	opts := components.OrchestratorOptions()
	if personas := c.StringSlice("persona"); len(personas) > 0 {
		opts.Personas = personas
	}
	orchestrator, err := service.NewOrchestrator(opts)
	if err != nil {
		return err
	}

	path := c.String("state")
	state, err := readState(path, components.Config.Business.Context)
	if err != nil {
		return err
	}
	if len(state.PointsOfInterest) == 0 {
		state.PointsOfInterest = components.POIs
	}
	state.Feedback = nil
	state = state.EnsureContext().WithMessage(model.RoleUser, c.String("message"))
	first := len(state.Messages)

	next := orchestrator.Run(c.Context, state)
	if err := writeJSONFile(path, next); err != nil {
		return err
	}

	out := c.App.Writer
	for _, msg := range next.Messages[first:] {
		fmt.Fprintf(out, "%s\n\n", msg.Content)
	}
	if next.Feedback != nil {
		fmt.Fprintf(out, "Note: %s\n", *next.Feedback)
	}
	if next.Lead != nil {
		fmt.Fprintln(out, "Lead captured from the conversation.")
	}
	return nil
}

func normalizeCommand() *cli.Command {
	return &cli.Command{
		Name:      "normalize",
		Usage:     "Normalize raw listings JSON into property cards",
		ArgsUsage: "[FILE]",
		Action: func(c *cli.Context) error {
			raws, err := readListings(c)
			if err != nil {
				return err
			}
			return writeJSON(c.App.Writer, listing.NormalizeBatch(raws))
		},
	}
}

func enrichCommand() *cli.Command {
	return &cli.Command{
		Name:      "enrich",
		Usage:     "Derive map links and travel estimates for raw listings",
		ArgsUsage: "[FILE]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "poi",
				Usage: "Points of interest as `Name:lat,lon;Name:lat,lon`",
			},
		},
		Action: func(c *cli.Context) error {
			components, err := loadApp(c)
			if err != nil {
				return err
			}
			defer components.Close()

			raws, err := readListings(c)
			if err != nil {
				return err
			}
			pois := components.POIs
			if c.IsSet("poi") {
				pois = maps.ParsePointsOfInterest(c.String("poi"))
			}
			return writeJSON(c.App.Writer, components.Enricher.EnrichAll(c.Context, raws, pois))
		},
	}
}

func personasCommand() *cli.Command {
	return &cli.Command{
		Name:  "personas",
		Usage: "List the available personas",
		Action: func(c *cli.Context) error {
			defaults := service.DefaultPersonas()
			for _, key := range service.PersonaOrder {
				p := defaults[key]
				fmt.Fprintf(c.App.Writer, "%-24s %-22s %s\n", p.Key, p.Name, p.Description)
			}
			return nil
		},
	}
}

func loadApp(c *cli.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Logging.Level = c.String("log-level")
	cfg.Logging.Format = "console"
	config.SetupLogging(cfg.Logging)

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return app.New(ctx, cfg)
}

// readState loads a conversation state, starting a new one when the file does not exist
func readState(path, businessContext string) (model.ConversationState, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return model.NewConversationState(businessContext), nil
	}
	if err != nil {
		return model.ConversationState{}, fmt.Errorf("failed to read state: %w", err)
	}

	var state model.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return model.ConversationState{}, fmt.Errorf("failed to parse state %s: %w", path, err)
	}
	if state.Context == "" {
		state.Context = businessContext
	}
	return state, nil
}

// readListings accepts a JSON array of listings, a search response payload,
// or a single listing object, from a file argument or stdin.
func readListings(c *cli.Context) ([]model.RawListing, error) {
	var reader io.Reader = os.Stdin
	if path := c.Args().First(); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		reader = f
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read listings: %w", err)
	}
	return parseListings(string(data))
}

func parseListings(input string) ([]model.RawListing, error) {
	if strings.HasPrefix(strings.TrimSpace(input), "[") {
		items, err := utils.TryParseJSONArray(input)
		if err != nil {
			return nil, fmt.Errorf("input is not a JSON listing array: %w", err)
		}
		raws := make([]model.RawListing, 0, len(items))
		for _, item := range items {
			if obj, ok := item.(map[string]any); ok {
				raws = append(raws, model.RawListing(obj))
			}
		}
		return raws, nil
	}

	payload, err := utils.TryParseJSONObject(input)
	if err != nil {
		return nil, fmt.Errorf("input is not a JSON listing array or object: %w", err)
	}
	if raws := listing.ExtractResults(payload); len(raws) > 0 {
		return raws, nil
	}
	return []model.RawListing{payload}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}
