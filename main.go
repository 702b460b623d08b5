package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/panchamjain/suvidha/cmd"
	"github.com/panchamjain/suvidha/pkg/config"
	"github.com/panchamjain/suvidha/pkg/log"
)

func main() {
	app := &cli.Command{
		Name:  "suvidha",
		Usage: "Search the DAYS Ahmedabad Suvidha Card merchant directory",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
				Value: false,
			},
			&cli.StringSliceFlag{
				Name:  "debug-service",
				Usage: "Enable debug logging for one service (e.g. search:normalize). Can be repeated",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Configuration file path",
				Value: getDefaultConfigPathOrExit(),
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			log.SetGlobalDebug(c.Bool("debug"))
			for _, name := range c.StringSlice("debug-service") {
				log.EnableDebugFor(name)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			cmd.InitCommand(),
			cmd.SearchCommand(),
			cmd.SuggestCommand(),
			cmd.ResolveCommand(),
			cmd.RecentCommand(),
			cmd.CatalogCommand(),
			cmd.CacheCommand(),
			cmd.ServeCommand(),
			cmd.StatsCommand(),
			cmd.MigrateCommand(),
			cmd.VersionCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.ForService("suvidha").Errorf("%v", err)
		os.Exit(1)
	}
}

func getDefaultConfigPathOrExit() string {
	path, err := config.GetDefaultConfigPath()
	if err != nil {
		log.ForService("suvidha").Errorf("failed to get default config path: %v", err)
		os.Exit(1)
	}
	return path
}
