package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gjbm2/dagnet-sub000/pkg/api"
	"github.com/gjbm2/dagnet-sub000/pkg/client"
	"github.com/gjbm2/dagnet-sub000/pkg/graph"
	"github.com/gjbm2/dagnet-sub000/pkg/provider"
	"github.com/gjbm2/dagnet-sub000/pkg/query"
)

var (
	Version   = "v1.0.0"
	Commit    = "unknown"
	BuildTime = "unknown"
)

const usage = `Usage:
  dagnet graph put <name> <file>
  dagnet graph list
  dagnet graph rm <name>
  dagnet compile <graph> <from> <to> [provider]
  dagnet audit list [graph]

The daemon endpoint defaults to http://127.0.0.1:8090 and can be
overridden with DAGNET_ENDPOINT.`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	endpoint := os.Getenv("DAGNET_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://127.0.0.1:8090"
	}
	c := client.NewClient(endpoint)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "graph":
		err = runGraph(ctx, c, os.Args[2:])
	case "compile":
		err = runCompile(ctx, c, os.Args[2:])
	case "audit":
		err = runAudit(ctx, c, os.Args[2:])
	case "version":
		fmt.Printf("dagnet %s (%s, built %s)\n", Version, Commit, BuildTime)
	default:
		fmt.Println(usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		fmt.Println("Is dagnet-d running?")
		os.Exit(1)
	}
}

func runGraph(ctx context.Context, c *client.Client, args []string) error {
	if len(args) < 1 {
		fmt.Println(usage)
		os.Exit(1)
	}

	switch args[0] {
	case "put":
		if len(args) != 3 {
			fmt.Println(usage)
			os.Exit(1)
		}
		name, path := args[1], args[2]

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		g := graph.NewGraph()
		if err := g.UnmarshalJSON(data); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}

		version, err := c.PutGraph(ctx, name, g)
		if err != nil {
			return err
		}
		fmt.Printf("Stored graph %q as version %d (%d nodes, %d edges)\n", name, version, g.Len(), len(g.Edges))
		return nil

	case "list":
		infos, err := c.ListGraphs(ctx)
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("No graphs stored.")
			return nil
		}
		fmt.Printf("%-24s %8s %6s %6s\n", "NAME", "VERSION", "NODES", "EDGES")
		for _, info := range infos {
			fmt.Printf("%-24s %8d %6d %6d\n", info.Name, info.Version, info.Nodes, info.Edges)
		}
		return nil

	case "rm":
		if len(args) != 2 {
			fmt.Println(usage)
			os.Exit(1)
		}
		if err := c.DeleteGraph(ctx, args[1]); err != nil {
			return err
		}
		fmt.Printf("Deleted graph %q\n", args[1])
		return nil

	default:
		fmt.Println(usage)
		os.Exit(1)
		return nil
	}
}

func runCompile(ctx context.Context, c *client.Client, args []string) error {
	if len(args) < 3 {
		fmt.Println(usage)
		os.Exit(1)
	}
	graphName, from, to := args[0], args[1], args[2]

	req := api.CompileRequest{Graph: graphName, From: from, To: to}
	if len(args) > 3 {
		req.Provider = provider.ProviderID(args[3])
	}

	result, err := c.Compile(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("Status:   %s\n", result.Status)
	fmt.Printf("Provider: %s\n", result.Provider)
	if result.Merge != "" {
		fmt.Printf("Merge:    %s\n", result.Merge)
	}
	if len(result.Constraints.Visited) > 0 {
		fmt.Printf("Visited:  %v\n", result.Constraints.Visited)
	}
	if len(result.Constraints.Exclude) > 0 {
		fmt.Printf("Exclude:  %v\n", result.Constraints.Exclude)
	}
	for _, group := range result.Constraints.VisitedAny {
		fmt.Printf("VisitedAny: %v\n", group)
	}
	for _, term := range result.Constraints.Terms {
		sign := "+"
		if term.Coefficient == query.Minus {
			sign = "-"
		}
		fmt.Printf("Term:     %s visited(%v)\n", sign, term.Constraints.Visited)
	}
	fmt.Printf("Checks:   %d, literals: %d, terms: %d\n",
		result.Diagnostics.Checks, result.Diagnostics.Literals, result.Diagnostics.Terms)
	return nil
}

func runAudit(ctx context.Context, c *client.Client, args []string) error {
	if len(args) < 1 || args[0] != "list" {
		fmt.Println(usage)
		os.Exit(1)
	}

	graphName := ""
	if len(args) > 1 {
		graphName = args[1]
	}

	events, err := c.ListCompilations(ctx, graphName, 50)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("No compilations recorded.")
		return nil
	}
	fmt.Printf("%-20s %-16s %-10s %-10s %-22s %6s %6s\n",
		"TIME", "GRAPH", "FROM", "TO", "STATUS", "CHECKS", "TERMS")
	for _, ev := range events {
		fmt.Printf("%-20s %-16s %-10s %-10s %-22s %6d %6d\n",
			ev.TsEvent.Format("2006-01-02 15:04:05"), ev.GraphName,
			ev.FromNode, ev.ToNode, ev.Status, ev.Checks, ev.Terms)
	}
	return nil
}
