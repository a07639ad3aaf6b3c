package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/cedrickchee/bitcask/internal/client"
	"github.com/cedrickchee/bitcask/internal/infra/buildinfo"
	"github.com/cedrickchee/bitcask/internal/kvserr"
)

func main() {
	app := &cli.App{
		Name:    "kvs-client",
		Usage:   "get, set, and remove keys on a kvs-server",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: "127.0.0.1:4000", Usage: "kvs-server address", EnvVars: []string{"KVS_ADDR"}},
		},
		Commands: []*cli.Command{
			getCommand(),
			setCommand(),
			removeCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "print the value bound to a key",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			key := c.Args().First()
			if key == "" {
				return cli.Exit("get requires a KEY argument", 1)
			}

			conn, err := client.Connect(c.String("addr"))
			if err != nil {
				return cli.Exit(err, 1)
			}
			defer conn.Close()

			value, ok, err := conn.Get(key)
			if err != nil {
				return cli.Exit(err, 1)
			}
			if !ok {
				fmt.Println("Key not found")
				return nil
			}
			fmt.Println(value)
			return nil
		},
	}
}

func setCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "bind a key to a value",
		ArgsUsage: "KEY VALUE",
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 2 {
				return cli.Exit("set requires KEY and VALUE arguments", 1)
			}
			key, value := c.Args().Get(0), c.Args().Get(1)

			conn, err := client.Connect(c.String("addr"))
			if err != nil {
				return cli.Exit(err, 1)
			}
			defer conn.Close()

			if err := conn.Set(key, value); err != nil {
				return cli.Exit(err, 1)
			}
			return nil
		},
	}
}

func removeCommand() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "remove a key",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			key := c.Args().First()
			if key == "" {
				return cli.Exit("rm requires a KEY argument", 1)
			}

			conn, err := client.Connect(c.String("addr"))
			if err != nil {
				return cli.Exit(err, 1)
			}
			defer conn.Close()

			if err := conn.Remove(key); err != nil {
				if kvserr.Is(err, kvserr.KeyNotFound) {
					fmt.Println("Key not found")
					return cli.Exit("", 1)
				}
				return cli.Exit(err, 1)
			}
			return nil
		},
	}
}
