// Copyright (c) EasyTofu
// SPDX-License-Identifier: MPL-2.0

// Package githubsource loads an InputRecord from a file committed to a
// GitHub repository, for teams that keep their CIDR plan alongside other
// infrastructure-as-code rather than on a local disk. It is read-only:
// generate is a pure function of its input, so there is nothing to write
// back.
package githubsource

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"
	"gopkg.in/yaml.v3"

	"github.com/easytofu/cidrplan/internal/ipamerrors"
	"github.com/easytofu/cidrplan/internal/model"
)

// Loader fetches a CIDR plan input document from a single file path in a
// GitHub repository.
type Loader struct {
	client *github.Client
	owner  string
	repo   string
	ref    string
	retry  RetryConfig
	logger hclog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithRetryConfig overrides the default retry/backoff policy.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(l *Loader) { l.retry = cfg }
}

// WithLogger attaches a logger used to report retries.
func WithLogger(logger hclog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader builds a Loader authenticated with an OAuth2 static token,
// reading from owner/repo at ref (branch, tag, or commit SHA).
func NewLoader(token, owner, repo, ref string, opts ...Option) *Loader {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)

	l := &Loader{
		client: github.NewClient(tc),
		owner:  owner,
		repo:   repo,
		ref:    ref,
		retry:  DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches path from the repository and decodes it as an
// InputRecord, YAML or JSON by file extension. Transient failures (rate
// limiting, abuse-detection backoff) are retried per the configured
// RetryConfig; a 404 is not retried and returns CodeConfigurationError.
func (l *Loader) Load(ctx context.Context, path string) (model.InputRecord, error) {
	var content []byte

	err := WithRetry(ctx, l.retry, l.logger, func(ctx context.Context, attempt int) (bool, error) {
		fileContent, _, resp, err := l.client.Repositories.GetContents(
			ctx, l.owner, l.repo, path,
			&github.RepositoryContentGetOptions{Ref: l.ref},
		)
		if err != nil {
			if resp != nil && resp.StatusCode == 404 {
				return false, fmt.Errorf("file not found: %w", err)
			}
			return isRetryable(resp), err
		}
		if fileContent == nil || fileContent.Content == nil {
			return false, fmt.Errorf("path %q is not a regular file", path)
		}

		decoded, err := base64.StdEncoding.DecodeString(*fileContent.Content)
		if err != nil {
			return false, fmt.Errorf("failed to decode content: %w", err)
		}
		content = decoded
		return false, nil
	})
	if err != nil {
		return model.InputRecord{}, ipamerrors.Wrap(ipamerrors.CodeConfigurationError,
			"failed to fetch remote config", err,
			"owner", l.owner, "repo", l.repo, "path", path, "ref", l.ref)
	}

	return decode(path, content)
}

// isRetryable reports whether resp indicates a transient failure worth a
// retry (rate limiting or a server-side error).
func isRetryable(resp *github.Response) bool {
	if resp == nil {
		return true // network-level error, no response at all
	}
	return resp.StatusCode == 403 || resp.StatusCode == 429 || resp.StatusCode >= 500
}

func decode(path string, content []byte) (model.InputRecord, error) {
	var input model.InputRecord

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, &input); err != nil {
			return model.InputRecord{}, ipamerrors.Wrap(ipamerrors.CodeConfigurationError,
				"failed to parse YAML config", err, "path", path)
		}
	case ".json":
		if err := json.Unmarshal(content, &input); err != nil {
			return model.InputRecord{}, ipamerrors.Wrap(ipamerrors.CodeConfigurationError,
				"failed to parse JSON config", err, "path", path)
		}
	default:
		return model.InputRecord{}, ipamerrors.New(ipamerrors.CodeConfigurationError,
			"unrecognized config file extension, expected .yaml, .yml, or .json", "path", path)
	}

	return input, nil
}
