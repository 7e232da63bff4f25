package main

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	core "github.com/hashlink/core"
	"github.com/hashlink/core/chain"
	"github.com/hashlink/core/config"
	"github.com/hashlink/core/hash"
	"github.com/hashlink/core/util"
)

// Commit stores the current commit hash of this build. This should be
// set using -ldflags during compilation.
var Commit string

func main() {
	app := cli.NewApp()
	app.Name = "chaind"
	app.Version = fmt.Sprintf("%s commit=%s", "0.1.0", Commit)
	app.Usage = "hash-linked chain node and toolbox"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Value: "",
			Usage: "path to the configuration file",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "serve",
			Usage:  "run the REST API over the configured chain",
			Action: serve,
		},
		{
			Name:      "add",
			Usage:     "mine and append a block with the given payload",
			ArgsUsage: "<payload>",
			Action:    add,
		},
		{
			Name:   "show",
			Usage:  "print the chain genesis to head",
			Action: show,
		},
		{
			Name:  "verify",
			Usage: "check every block and link",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "quick",
					Usage: "suffix-only block checks",
				},
			},
			Action: verify,
		},
		{
			Name:      "rollback",
			Usage:     "roll back to a hash, or to the last valid block",
			ArgsUsage: "[target-hash]",
			Action:    rollback,
		},
		{
			Name:      "diff",
			Usage:     "compare the configured chain with one stored at another path",
			ArgsUsage: "<other-path>",
			Action:    diff,
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(c *cli.Context) (config.Configuration, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return cfg, err
	}
	cfg.SetupLogger()
	return cfg, nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ch, err := core.OpenChain(context.Background(), cfg)
	if err != nil {
		return err
	}
	return core.RunAPI(cfg, ch)
}

func add(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.NewExitError("add needs exactly one payload argument", 1)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx := context.Background()
	ch, err := core.OpenChain(ctx, cfg)
	if err != nil {
		return err
	}
	b, err := ch.NewBlock(ctx, []byte(c.Args().First()))
	if err != nil {
		return err
	}
	if err := ch.Add(ctx, b); err != nil {
		return err
	}
	if err := ch.Commit(ctx); err != nil {
		return err
	}
	fmt.Printf("%d %s %s\n", ch.Height()-1, b.Digest, util.EncodeBubbleBabble(b.Digest))
	return nil
}

func show(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx := context.Background()
	ch, err := core.OpenChain(ctx, cfg)
	if err != nil {
		return err
	}
	_, err = chain.Walk(ctx, ch, chain.WalkOptions{}, func(b *chain.Block) (struct{}, error) {
		fmt.Printf("%s  %-24s %q\n", b.Digest, util.EncodeBubbleBabble(b.Digest), string(b.Data))
		return struct{}{}, nil
	})
	return err
}

func verify(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx := context.Background()
	ch, err := core.OpenChain(ctx, cfg)
	if err != nil {
		return err
	}
	if !ch.Verify(ctx, c.Bool("quick")) {
		return cli.NewExitError("chain is NOT valid", 1)
	}
	fmt.Printf("chain %s is valid at height %d\n", ch.Name(), ch.Height())
	return nil
}

func rollback(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx := context.Background()
	ch, err := core.OpenChain(ctx, cfg)
	if err != nil {
		return err
	}
	var target hash.Digest
	if c.NArg() > 0 {
		target, err = hash.FromHex(c.Args().First())
		if err != nil {
			return err
		}
	}
	if err := ch.Rollback(ctx, target); err != nil {
		return err
	}
	if err := ch.Commit(ctx); err != nil {
		return err
	}
	fmt.Printf("rolled back to height %d\n", ch.Height())
	return nil
}

func diff(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.NewExitError("diff needs the other chains path", 1)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx := context.Background()
	ch, err := core.OpenChain(ctx, cfg)
	if err != nil {
		return err
	}
	otherCfg := cfg
	otherCfg.Storage.Path = c.Args().First()
	other, err := core.OpenChain(ctx, otherCfg)
	if err != nil {
		return err
	}
	d, err := ch.Diff(ctx, other)
	if err != nil {
		return err
	}
	for i, b := range d {
		if b == nil {
			fmt.Printf("%4d  =\n", i)
			continue
		}
		fmt.Printf("%4d  + %s %q\n", i, b.Digest, string(b.Data))
	}
	mine, theirs := digests(ctx, ch), digests(ctx, other)
	add, del := hash.Diff(mine, theirs)
	fmt.Printf("%d blocks only here, %d blocks only there\n", len(del), len(add))
	return nil
}

func digests(ctx context.Context, c *chain.Chain) []hash.Digest {
	blocks, err := c.Blocks(ctx)
	if err != nil {
		return nil
	}
	out := make([]hash.Digest, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, b.Digest)
	}
	return out
}
