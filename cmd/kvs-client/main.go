// Command kvs-client is a one-shot CLI for talking to a toycask server:
// connect, issue a single set/get/rm command, print the result, exit.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/jassi-singh/toycask/internal/client"
	"github.com/jassi-singh/toycask/internal/config"
	"github.com/jassi-singh/toycask/internal/kvserr"
)

func main() {
	addrFlag := flag.String("addr", "", "server address, overrides config default")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}

	addr := *addrFlag
	if addr == "" {
		addr = config.DefaultAddr
	}

	if err := run(addr, args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(addr string, args []string) error {
	c, err := client.Connect(addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer c.Close()

	switch args[0] {
	case "set":
		if len(args) != 3 {
			return errors.New("usage: kvs-client set <key> <value>")
		}
		return c.Set(args[1], args[2])

	case "get":
		if len(args) != 2 {
			return errors.New("usage: kvs-client get <key>")
		}
		value, err := c.Get(args[1])
		if err != nil {
			return err
		}
		if value == nil {
			fmt.Println("Key not found")
			return nil
		}
		fmt.Println(*value)
		return nil

	case "rm":
		if len(args) != 2 {
			return errors.New("usage: kvs-client rm <key>")
		}
		if err := c.Remove(args[1]); err != nil {
			if errors.Is(err, kvserr.ErrKeyNotFound) {
				fmt.Println("Key not found")
				os.Exit(1)
			}
			return err
		}
		return nil

	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: kvs-client [--addr host:port] <set|get|rm> ...")
	fmt.Fprintln(os.Stderr, "  set <key> <value>")
	fmt.Fprintln(os.Stderr, "  get <key>")
	fmt.Fprintln(os.Stderr, "  rm <key>")
}
