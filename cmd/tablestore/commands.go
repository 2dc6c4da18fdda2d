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

	"github.com/weaviate/tablestore/entities/instant"
	"github.com/weaviate/tablestore/usecases/client"
	"github.com/weaviate/tablestore/usecases/timeline"
)

type initCommand struct {
	env *env
}

func (c *initCommand) Execute(args []string) error {
	ctx := context.Background()
	a, err := c.env.app(ctx)
	if err != nil {
		return err
	}
	base := a.config.Table.BasePath
	if _, err := timeline.InitTable(ctx, a.store, base, a.config.Table.TableConfig(), a.logger); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "initialized %s table %s at %s\n", a.config.Table.Type, a.config.Table.Name, base)
	return nil
}

type timelineCommand struct {
	env *env

	Pending bool     `long:"pending" description:"only print requested and inflight instants"`
	Actions []string `long:"action" description:"only print instants of this action, can be repeated"`
}

func (c *timelineCommand) Execute(args []string) error {
	ctx := context.Background()
	a, err := c.env.app(ctx)
	if err != nil {
		return err
	}
	meta, err := timeline.NewMetaClient(ctx, a.store, a.config.Table.BasePath, a.logger)
	if err != nil {
		return err
	}
	tl := meta.ActiveTimeline().Timeline
	if c.Pending {
		tl = tl.FilterPending()
	}
	if len(c.Actions) > 0 {
		actions := make([]instant.Action, len(c.Actions))
		for i, name := range c.Actions {
			actions[i] = instant.Action(name)
		}
		tl = tl.FilterByActions(actions...)
	}
	for _, ins := range tl.Instants() {
		fmt.Fprintf(a.out, "%s\t%s\t%s\n", ins.Timestamp, ins.Action, ins.State)
	}
	return nil
}

func newClient(a *app) *client.Client {
	return client.New(a.store, a.config, nil, nil, nil, a.logger, a.metrics)
}

type rollbackCommand struct {
	env *env

	Instant string `long:"instant" required:"true" description:"instant time of the write to roll back"`
}

func (c *rollbackCommand) Execute(args []string) error {
	ctx := context.Background()
	a, err := c.env.app(ctx)
	if err != nil {
		return err
	}
	ok, err := newClient(a).Rollback(ctx, c.Instant)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(a.out, "instant %s not found\n", c.Instant)
		return nil
	}
	fmt.Fprintf(a.out, "rolled back %s\n", c.Instant)
	return nil
}

type rollbackPendingCommand struct {
	env *env
}

func (c *rollbackPendingCommand) Execute(args []string) error {
	ctx := context.Background()
	a, err := c.env.app(ctx)
	if err != nil {
		return err
	}
	done, err := newClient(a).RollbackPendingCommits(ctx)
	for _, ts := range done {
		fmt.Fprintf(a.out, "rolled back %s\n", ts)
	}
	return err
}

type markersCommand struct {
	env *env

	Instant string `long:"instant" required:"true" description:"instant time of the write"`
}

func (c *markersCommand) Execute(args []string) error {
	ctx := context.Background()
	a, err := c.env.app(ctx)
	if err != nil {
		return err
	}
	tracker, err := newClient(a).Markers(ctx, c.Instant)
	if err != nil {
		return err
	}
	all, err := tracker.AllMarkers(ctx)
	if err != nil {
		return err
	}
	for _, m := range all {
		fmt.Fprintf(a.out, "%s\t%s\n", m.IOType, m.DataFilePath())
	}
	return nil
}
