//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2025 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/weaviate/tablestore/entities/filestore"
	"github.com/weaviate/tablestore/usecases/config"
	"github.com/weaviate/tablestore/usecases/monitoring"
)

// Options represents Command line options
type Options struct {
	config.Flags
}

// app is what every command runs against.
type app struct {
	config  *config.Config
	logger  *logrus.Logger
	store   filestore.FileStore
	metrics *monitoring.Metrics
	out     io.Writer
}

// env builds the app lazily, after go-flags parsed the global options.
type env struct {
	opts *Options
	out  io.Writer
	open func(ctx context.Context, opts *Options, out io.Writer) (*app, error)
}

func (e *env) app(ctx context.Context) (*app, error) {
	return e.open(ctx, e.opts, e.out)
}

func openApp(ctx context.Context, opts *Options, out io.Writer) (*app, error) {
	cfg, err := config.Load(opts.Flags)
	if err != nil {
		return nil, err
	}
	logger := config.NewLogger(cfg.Logging, os.Stderr)
	store, err := newStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	reg := monitoring.Registerer(cfg.Monitoring.Enabled, prometheus.DefaultRegisterer)
	return &app{
		config:  cfg,
		logger:  logger,
		store:   store,
		metrics: monitoring.NewMetrics(reg),
		out:     out,
	}, nil
}

func newParser(e *env) *flags.Parser {
	parser := flags.NewParser(e.opts, flags.Default)
	parser.AddCommand("init", "create a table",
		"Lays out a new table at the configured base path.", &initCommand{env: e})
	parser.AddCommand("timeline", "print the active timeline",
		"Prints every instant of the table with its action and state.", &timelineCommand{env: e})
	parser.AddCommand("rollback", "roll back one instant",
		"Rolls back the commit or deltacommit at the given instant time.", &rollbackCommand{env: e})
	parser.AddCommand("rollback-pending", "roll back every pending write",
		"Rolls back every requested or inflight commit, newest first.", &rollbackPendingCommand{env: e})
	parser.AddCommand("markers", "print the write markers of an instant",
		"Prints the data files an instant marked as written.", &markersCommand{env: e})
	return parser
}

func main() {
	var opts Options
	parser := newParser(&env{opts: &opts, out: os.Stdout, open: openApp})

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
