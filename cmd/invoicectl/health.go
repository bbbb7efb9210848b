package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func (c *cli) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the extraction service is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			status, err := c.newClient().Health(ctx)
			if err != nil {
				return &exitError{code: exitTransport, err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", status.Status, status.Message)
			return nil
		},
	}
}
