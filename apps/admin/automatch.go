package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) autoMatch(sessionID string) error {
	res, err := cli.sponsorshipSvc.AutoMatch(context.Background(), sessionID)
	// a failed pass may still have stored some matches
	fmt.Fprintf(cli.out, "created: %d, unmatched: %d, skipped: %d\n", res.Created, res.Unmatched, res.Skipped)
	return err
}

func (cli *commandLine) recount(contestID string) error {
	cands, err := cli.contestSvc.Recount(context.Background(), contestID)
	if err != nil {
		return err
	}
	for _, cand := range cands {
		fmt.Fprintf(cli.out, "%s: %d\n", cand.Name, cand.VotesCount)
	}
	return nil
}
