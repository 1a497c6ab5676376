package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kubidu/kubidu/internal/kubictl"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "seed":
		fs := flag.NewFlagSet("seed", flag.ExitOnError)
		file := fs.String("f", "", "Path to seed definition YAML file (required)")
		fs.Parse(os.Args[2:])

		if *file == "" {
			fmt.Fprintln(os.Stderr, "Error: -f flag is required")
			fs.Usage()
			os.Exit(1)
		}

		exitOnErr(kubictl.Seed(ctx, *file, os.Stdout))

	case "rollback":
		fs, client := clientFlags("rollback")
		fs.Parse(os.Args[2:])
		if fs.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "Usage: kubictl rollback [-api URL] <service-id> <deployment-id>")
			os.Exit(1)
		}
		exitOnErr(kubictl.Rollback(ctx, client(), fs.Arg(0), fs.Arg(1), os.Stdout))

	case "deployments":
		fs, client := clientFlags("deployments")
		limit := fs.Int("limit", 10, "Number of deployments to show")
		fs.Parse(os.Args[2:])
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "Usage: kubictl deployments [-api URL] [-limit N] <service-id>")
			os.Exit(1)
		}
		exitOnErr(kubictl.Deployments(ctx, client(), fs.Arg(0), *limit, os.Stdout))

	case "impact":
		fs, client := clientFlags("impact")
		fs.Parse(os.Args[2:])
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "Usage: kubictl impact [-api URL] <service-id>")
			os.Exit(1)
		}
		exitOnErr(kubictl.Impact(ctx, client(), fs.Arg(0), os.Stdout))

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// clientFlags registers -api on a new flag set. The returned constructor
// must be called after parsing.
func clientFlags(name string) (*flag.FlagSet, func() *kubictl.Client) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	apiURL := fs.String("api", envOr("KUBIDU_API_URL", kubictl.DefaultAPIURL), "Core API base URL")
	return fs, func() *kubictl.Client {
		key := os.Getenv("KUBIDU_API_KEY")
		if key == "" {
			fmt.Fprintln(os.Stderr, "Error: KUBIDU_API_KEY is not set")
			os.Exit(1)
		}
		return kubictl.NewClient(*apiURL, key)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func exitOnErr(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage:
  kubictl seed -f <seed-definition.yaml>
  kubictl rollback [-api URL] <service-id> <deployment-id>
  kubictl deployments [-api URL] [-limit N] <service-id>
  kubictl impact [-api URL] <service-id>

Commands:
  seed          Create services, variables and references from a YAML definition
  rollback      Redeploy the configuration of an earlier deployment
  deployments   List recent deployments of a service
  impact        List services that read variables from a service

Environment:
  KUBIDU_API_KEY   API token (required)
  KUBIDU_API_URL   Core API base URL (default: http://localhost:8090)`)
}
