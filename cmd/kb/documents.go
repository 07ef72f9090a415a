package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/viant/sqlite-kb/document"
	"github.com/viant/sqlite-kb/internal/bootstrap"
	"github.com/viant/sqlite-kb/kb"
)

func newInsertCmd() *cobra.Command {
	var embedding bool
	cmd := &cobra.Command{
		Use:   "insert FILE",
		Short: "Insert documents from a JSON lines file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			docs, err := readDocuments(in)
			if err != nil {
				return err
			}
			return withContainer(cmd, func(ctx context.Context, c *bootstrap.Container) error {
				client, err := c.Client(ctx)
				if err != nil {
					return err
				}
				var opts []kb.InsertOption
				if embedding {
					opts = append(opts, kb.WithEmbedding())
				}
				stored, err := client.InsertDocuments(ctx, docs, opts...)
				for _, doc := range stored {
					fmt.Fprintln(cmd.OutOrStdout(), doc.ID)
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&embedding, "embed", false, "Also index documents in the vector store")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Print the documents most similar to QUERY as JSON lines",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withContainer(cmd, func(ctx context.Context, c *bootstrap.Container) error {
				client, err := c.Client(ctx)
				if err != nil {
					return err
				}
				docs, err := client.RetrieveSimilarDocuments(ctx, query, n)
				if err != nil {
					return err
				}
				return writeDocuments(cmd.OutOrStdout(), docs)
			})
		},
	}
	cmd.Flags().IntVarP(&n, "limit", "n", 5, "Maximum number of documents")
	return cmd
}

// readDocuments parses one JSON object of fields per non-blank line.
func readDocuments(r io.Reader) ([]document.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	var docs []document.Document
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		fields := document.Fields{}
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		docs = append(docs, document.New(fields))
	}
	return docs, scanner.Err()
}

func writeDocuments(w io.Writer, docs []document.Document) error {
	enc := json.NewEncoder(w)
	for _, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}
	return nil
}
