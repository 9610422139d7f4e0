package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ballotproof/ballotproof-go/pkg/client"
	"github.com/ballotproof/ballotproof-go/pkg/commitment"
)

func main() {
	serverFlag := &cli.StringFlag{
		Name:    "server",
		Aliases: []string{"s"},
		Value:   "http://localhost:8000",
		Usage:   "Poll server base URL",
		EnvVars: []string{"POLL_SERVER_URL"},
	}
	identityFlag := &cli.StringFlag{
		Name:     "identity",
		Aliases:  []string{"i"},
		Usage:    "Secret voter identity (keep private)",
		EnvVars:  []string{"POLL_IDENTITY"},
		Required: true,
	}

	app := &cli.App{
		Name:    "poll-client",
		Usage:   "Client for the anonymous commitment voting server",
		Version: "1.0.0",
		Commands: []*cli.Command{
			{
				Name:  "register",
				Usage: "Register a voter identity",
				Flags: []cli.Flag{serverFlag, identityFlag},
				Action: func(c *cli.Context) error {
					nullifier, err := client.NewClient(c.String("server")).Register(c.String("identity"))
					if err != nil {
						return err
					}
					fmt.Printf("Registered. Nullifier: %s\n", nullifier)
					return nil
				},
			},
			{
				Name:  "vote",
				Usage: "Cast or update a vote commitment",
				Flags: []cli.Flag{
					serverFlag, identityFlag,
					&cli.StringFlag{Name: "choice", Aliases: []string{"c"}, Usage: "Vote choice", Required: true},
					&cli.StringFlag{Name: "salt", Usage: "Commitment salt (generated when omitted; keep it for reveal)"},
				},
				Action: func(c *cli.Context) error {
					result, err := client.NewClient(c.String("server")).Vote(
						c.String("identity"), c.String("choice"), c.String("salt"))
					if err != nil {
						return err
					}
					fmt.Printf("Commitment: %s\n", result.Commitment)
					fmt.Printf("Salt:       %s\n", result.Salt)
					fmt.Printf("Root:       %s\n", result.Root)
					fmt.Printf("Leaves:     %d\n", result.LeafCount)
					if result.Updated {
						fmt.Println("Previous commitment was replaced.")
					}
					return nil
				},
			},
			{
				Name:  "root",
				Usage: "Fetch the current tree root",
				Flags: []cli.Flag{serverFlag},
				Action: func(c *cli.Context) error {
					resp, err := client.NewClient(c.String("server")).Root()
					if err != nil {
						return err
					}
					if resp.Root == "" {
						fmt.Println("Tree is empty.")
						return nil
					}
					fmt.Printf("Root:   %s\n", resp.Root)
					fmt.Printf("Leaves: %d\n", resp.LeafCount)
					return nil
				},
			},
			{
				Name:      "proof",
				Usage:     "Fetch the inclusion proof for a commitment",
				ArgsUsage: "<commitment>",
				Flags:     []cli.Flag{serverFlag},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("expected exactly one commitment argument")
					}
					proof, err := client.NewClient(c.String("server")).Proof(c.Args().First())
					if err != nil {
						return err
					}
					return json.NewEncoder(os.Stdout).Encode(proof)
				},
			},
			{
				Name:  "verify",
				Usage: "Verify an inclusion proof locally (reads proof JSON from stdin or a file)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "proof-file", Aliases: []string{"f"}, Usage: "Proof JSON file (stdin when omitted)"},
				},
				Action: func(c *cli.Context) error {
					proof, err := readProof(c.String("proof-file"))
					if err != nil {
						return err
					}
					if commitment.VerifyProof(proof) {
						fmt.Println("Proof is VALID.")
						return nil
					}
					fmt.Println("Proof is INVALID.")
					os.Exit(1)
					return nil
				},
			},
			{
				Name:  "reveal",
				Usage: "Finalize a choice by opening its commitment",
				Flags: []cli.Flag{
					serverFlag, identityFlag,
					&cli.StringFlag{Name: "choice", Aliases: []string{"c"}, Usage: "Vote choice", Required: true},
					&cli.StringFlag{Name: "salt", Usage: "The salt the commitment was cast with", Required: true},
				},
				Action: func(c *cli.Context) error {
					resp, err := client.NewClient(c.String("server")).Reveal(
						c.String("identity"), c.String("choice"), c.String("salt"))
					if err != nil {
						return err
					}
					fmt.Printf("Revealed %q for commitment %s\n", resp.Choice, resp.Commitment)
					return nil
				},
			},
			{
				Name:  "tally",
				Usage: "Fetch finalized choice counts",
				Flags: []cli.Flag{serverFlag},
				Action: func(c *cli.Context) error {
					counts, err := client.NewClient(c.String("server")).Tally()
					if err != nil {
						return err
					}
					if len(counts) == 0 {
						fmt.Println("No reveals yet.")
						return nil
					}
					for choice, count := range counts {
						fmt.Printf("%s: %d\n", choice, count)
					}
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

// readProof decodes a proof from a file or stdin
func readProof(path string) (*commitment.Proof, error) {
	var r io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open proof file: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var proof commitment.Proof
	if err := json.NewDecoder(r).Decode(&proof); err != nil {
		return nil, fmt.Errorf("failed to decode proof JSON: %w", err)
	}
	return &proof, nil
}
