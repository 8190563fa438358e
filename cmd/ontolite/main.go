// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/ontolite"
	"github.com/poiesic/ontolite/ai"
	"github.com/poiesic/ontolite/core"
	"github.com/poiesic/ontolite/jobs"
)

func main() {
	app := &cli.App{
		Name:  "ontolite",
		Usage: "Provenance-tracked micro-ontology indexer with hybrid search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest a text file and extract its micro-ontology",
				ArgsUsage: "FILE",
				Action:    ingestCommand,
				Flags: append(engineFlags(),
					&cli.StringFlag{
						Name:  "title",
						Usage: "Document title (defaults to the file name)",
					},
				),
			},
			{
				Name:      "ontology",
				Usage:     "Print the latest micro-ontology of a document",
				ArgsUsage: "DOCUMENT_ID",
				Action:    ontologyCommand,
				Flags:     engineFlags(),
			},
			{
				Name:   "documents",
				Usage:  "List all stored documents",
				Action: documentsCommand,
				Flags:  engineFlags(),
			},
			{
				Name:      "search",
				Usage:     "Run a hybrid query over documents and concepts",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: append(engineFlags(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 10,
					},
				),
			},
			{
				Name:      "verify",
				Usage:     "Check a document's stored spans against its text",
				ArgsUsage: "DOCUMENT_ID",
				Action:    verifyCommand,
				Flags:     engineFlags(),
			},
			{
				Name:   "reembed",
				Usage:  "Regenerate stale vectors for all documents and concepts",
				Action: reembedCommand,
				Flags:  engineFlags(),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func engineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "OpenAI-compatible service host URL for embedding and extraction",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.IntFlag{
			Name:  "embedding-dim",
			Usage: "Embedding dimensionality recorded in fingerprints",
			Value: 768,
		},
		&cli.StringFlag{
			Name:  "extractor-model",
			Usage: "Extraction model name",
			Value: "qwen2.5:3b",
		},
		&cli.Float64Flag{
			Name:  "min-confidence",
			Usage: "Minimum confidence for extracted candidates",
			Value: 0.2,
		},
	}
}

func openEngine(c *cli.Context) (*ontolite.Engine, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithEmbeddingDimension(c.Int("embedding-dim")),
		ai.WithExtractorModel(c.String("extractor-model")),
		ai.WithMinConfidence(c.Float64("min-confidence")),
	)
	aiConfig.Normalize()
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	return ontolite.NewEngine(c.String("db"), ontolite.WithAIConfig(aiConfig))
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one file argument")
	}
	path := c.Args().First()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	title := c.String("title")
	if title == "" {
		title = filepath.Base(path)
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()
	jobID, err := engine.Ingest(ctx, string(data), title)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Job %s queued for %q\n", jobID, title)

	// Job state lives in this process, so poll until the job settles.
	var job *jobs.Job
	for {
		job, err = engine.JobStatus(jobID)
		if err != nil {
			return err
		}
		if job.State == jobs.StateCompleted || job.State == jobs.StateFailed {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}

	if job.State == jobs.StateFailed {
		return fmt.Errorf("extraction failed: %s", job.Error)
	}

	fmt.Printf("Document %d extracted: %d concepts, %d relations, %d spans (%d chunks skipped, %d candidates dropped)\n",
		job.DocumentId, job.Counts.ConceptsExtracted, job.Counts.RelationsExtracted,
		job.Counts.SpansExtracted, job.Counts.SkippedChunks, job.Counts.DroppedCandidates)
	return nil
}

func ontologyCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one document ID argument")
	}
	id, err := strconv.ParseUint(c.Args().First(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid document ID: %w", err)
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	onto, err := engine.GetOntology(context.Background(), core.ID(id))
	if err != nil {
		return err
	}

	fmt.Printf("Document: %s (id %d)\n", onto.Document.Title, onto.Document.Id)
	fmt.Printf("Version:  %d (model %s, extracted %s)\n",
		onto.Version.Id, onto.Version.ModelName, onto.Version.ExtractedAt.Format(time.RFC3339))
	if onto.Document.Summary != "" {
		fmt.Printf("Summary:  %s\n", onto.Document.Summary)
	}

	fmt.Printf("\nConcepts (%d):\n", len(onto.Concepts))
	labels := make(map[core.ID]string, len(onto.Concepts))
	for _, concept := range onto.Concepts {
		labels[concept.Id] = concept.Label
		fmt.Printf("  [%s] %s (%.2f)\n", concept.Type, concept.Label, concept.Confidence)
	}

	fmt.Printf("\nRelations (%d):\n", len(onto.Relations))
	for _, rel := range onto.Relations {
		fmt.Printf("  %s %s %s (%.2f)\n", labels[rel.Src], rel.Verb, labels[rel.Dst], rel.Confidence)
	}

	fmt.Printf("\nSpans (%d):\n", len(onto.Spans))
	for _, span := range onto.Spans {
		excerpt := span.Text
		if len(excerpt) > 80 {
			excerpt = excerpt[:80] + "..."
		}
		fmt.Printf("  [%d:%d] %q\n", span.Start, span.End, excerpt)
	}
	return nil
}

func documentsCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	docs, err := engine.GetAllDocuments(context.Background())
	if err != nil {
		return err
	}

	for _, doc := range docs {
		embedded := " "
		if len(doc.Vector) > 0 {
			embedded = "*"
		}
		fmt.Printf("%20d %s %s (%d bytes)\n", doc.Id, embedded, doc.Title, doc.Bytes)
	}
	fmt.Fprintf(os.Stderr, "%d documents (* = embedded)\n", len(docs))
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one query argument")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	results, err := engine.Search(context.Background(), c.Args().First(), c.Int("limit"))
	if err != nil {
		return err
	}

	for _, r := range results {
		fmt.Printf("%.3f  %-8s %-40s (title %.2f, concept %.2f, semantic %.2f)\n",
			r.FinalScore, r.Kind, r.Title, r.TitleScore, r.ConceptScore, r.SemanticScore)
	}
	fmt.Fprintf(os.Stderr, "%d results\n", len(results))
	return nil
}

func verifyCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one document ID argument")
	}
	id, err := strconv.ParseUint(c.Args().First(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid document ID: %w", err)
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	mismatches, err := engine.CheckSpans(context.Background(), core.ID(id))
	if err != nil {
		return err
	}

	if mismatches == 0 {
		fmt.Printf("Document %d: all spans match\n", id)
		return nil
	}
	return fmt.Errorf("document %d: %d spans diverged from the text", id, mismatches)
}

func reembedCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	result, err := engine.RegenerateVectors(context.Background(), os.Stderr)
	if err != nil {
		return fmt.Errorf("regeneration failed: %w", err)
	}

	fmt.Printf("Updated %d, skipped %d, failed %d\n", result.Updated, result.Skipped, result.Failed)
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
