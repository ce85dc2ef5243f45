package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openclaw/membench/internal/dataset"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <dataset.json>",
		Short: "Validate a retrieval dataset file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := dataset.Load(args[0])
			if err != nil {
				return err
			}

			sessions := make(map[string]bool)
			messages := 0
			for _, q := range ds.Questions {
				for _, s := range q.Sessions {
					sessions[s.SessionID] = true
					messages += len(s.Messages)
				}
			}

			fmt.Printf("Dataset: %s\n", ds.Name)
			fmt.Printf("Questions: %d\n", len(ds.Questions))
			fmt.Printf("Sessions: %d\n", len(sessions))
			fmt.Printf("Messages: %d\n", messages)
			return nil
		},
	}
}
