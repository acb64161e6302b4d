// Copyright (c) EasyTofu
// SPDX-License-Identifier: MPL-2.0

// Command cidrplan runs the hierarchical CIDR allocation engine against a
// local or GitHub-hosted plan document and writes the resulting
// allocation table as CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/easytofu/cidrplan/internal/allocator"
	"github.com/easytofu/cidrplan/internal/config"
	"github.com/easytofu/cidrplan/internal/csvout"
	"github.com/easytofu/cidrplan/internal/githubsource"
	"github.com/easytofu/cidrplan/internal/model"
)

const version = "0.1.0"

func main() {
	inputPath := flag.String("input", "", "Path to a local plan file (YAML or JSON)")
	outputPath := flag.String("output", "", "Path to write the CSV output (default: stdout)")
	ghOwner := flag.String("github-owner", "", "GitHub repository owner (enables remote mode)")
	ghRepo := flag.String("github-repo", "", "GitHub repository name")
	ghRef := flag.String("github-ref", "main", "GitHub ref (branch, tag, or commit SHA)")
	ghPath := flag.String("github-path", "", "Path to the plan file within the repository")
	skipPostCheck := flag.Bool("skip-post-check", false, "Skip the independent overlap post-check")
	logLevel := flag.String("log-level", "info", "Log level: trace, debug, info, warn, error")
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("cidrplan version %s\n", version)
		return
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "cidrplan",
		Level: hclog.LevelFromString(*logLevel),
	})

	input, err := loadInput(logger, *inputPath, *ghOwner, *ghRepo, *ghRef, *ghPath)
	if err != nil {
		logger.Error("failed to load plan input", "error", err)
		os.Exit(1)
	}

	rows, err := allocator.Generate(input)
	if err != nil {
		logger.Error("allocation failed", "error", err)
		os.Exit(1)
	}
	logger.Info("allocation complete", "rows", len(rows))

	if !*skipPostCheck {
		if err := csvout.PostCheckOverlap(rows); err != nil {
			logger.Error("post-check failed", "error", err)
			os.Exit(1)
		}
	}

	out := os.Stdout
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			logger.Error("failed to create output file", "error", err, "path", *outputPath)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	if err := csvout.Write(out, rows); err != nil {
		logger.Error("failed to write CSV output", "error", err)
		os.Exit(1)
	}
}

func loadInput(logger hclog.Logger, inputPath, ghOwner, ghRepo, ghRef, ghPath string) (model.InputRecord, error) {
	if ghOwner != "" || ghRepo != "" {
		if ghOwner == "" || ghRepo == "" || ghPath == "" {
			return model.InputRecord{}, fmt.Errorf("github-owner, github-repo, and github-path must all be set for remote mode")
		}
		token := os.Getenv("GITHUB_TOKEN")
		if token == "" {
			return model.InputRecord{}, fmt.Errorf("GITHUB_TOKEN must be set for remote mode")
		}
		logger.Info("fetching plan from GitHub", "owner", ghOwner, "repo", ghRepo, "path", ghPath, "ref", ghRef)
		loader := githubsource.NewLoader(token, ghOwner, ghRepo, ghRef, githubsource.WithLogger(logger.Named("github")))
		return loader.Load(context.Background(), ghPath)
	}

	if inputPath == "" {
		return model.InputRecord{}, fmt.Errorf("either -input or -github-owner/-github-repo/-github-path must be set")
	}
	logger.Info("loading plan from local file", "path", inputPath)
	return config.LoadFile(inputPath)
}
