package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/Lllllllleong/rfpsynth/internal/models"
)

var generateCmd = &cobra.Command{
	Use:   "generate FILE...",
	Short: "Run one batch synchronously and print the final task record",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		names := make([]string, len(args))
		for i, arg := range args {
			names[i] = filepath.Base(arg)
		}
		if err := a.pipeline.Validate(names); err != nil {
			return err
		}

		docs := make([]models.SourceDocument, 0, len(args))
		for _, arg := range args {
			doc, err := saveFile(cmd, a, arg)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}

		a.registry.OnTransition(func(r models.TaskRecord) {
			fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s\n", r.Status, r.Message)
		})

		record, err := a.pipeline.Execute(ctx, docs)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(record); err != nil {
			return errors.Wrap(err, "encode task record")
		}
		if record.Status != models.TaskStatusCompleted {
			return errors.Newf("batch %s ended with status %s", record.ID, record.Status)
		}
		return nil
	},
}

func saveFile(cmd *cobra.Command, a *app, path string) (models.SourceDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.SourceDocument{}, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return a.store.SaveUpload(cmd.Context(), filepath.Base(path), f)
}
