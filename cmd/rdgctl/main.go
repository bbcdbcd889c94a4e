// rdgctl is a small operator CLI around a Resident Data Graph: it opens
// (or initializes) a graph directory and runs one of a few maintenance
// subcommands. Configuration comes from an optional YAML file on disk,
// filled out with defaults, then overridden by positional CLI
// arguments.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/vela-graph/rdg/internal/blobstore"
	"github.com/vela-graph/rdg/internal/csr"
	"github.com/vela-graph/rdg/pkg/model"
	"github.com/vela-graph/rdg/pkg/persistence"
	"github.com/vela-graph/rdg/pkg/rdg"
)

// cliConfig is the on-disk rdgctl.yaml shape. Unlike the library's
// rdg.Config (constructed programmatically by embedders), this one is
// meant to be hand-edited or checked into an operator's deployment repo.
type cliConfig struct {
	DataDir string `yaml:"dataDir"`
	NodeID  uint32 `yaml:"nodeId"`
	Workers int    `yaml:"workers"`
}

func getConfig() cliConfig {
	cfg := cliConfig{DataDir: "./rdg-data", NodeID: 0, Workers: 0}

	if data, err := os.ReadFile("rdgctl.yaml"); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("rdgctl: parse rdgctl.yaml: %v", err)
		}
	}

	if len(os.Args) > 2 {
		cfg.DataDir = os.Args[2]
	}
	if len(os.Args) > 3 {
		fmt.Sscanf(os.Args[3], "%d", &cfg.NodeID)
	}

	return cfg
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: rdgctl <init|info> [dataDir] [nodeId]")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg := getConfig()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	switch os.Args[1] {
	case "init":
		runInit(cfg, logger)
	case "info":
		runInfo(cfg, logger)
	default:
		usage()
		os.Exit(1)
	}
}

// runInit creates an empty graph directory with a single, edgeless
// canonical topology and commits version 1.
func runInit(cfg cliConfig, logger *slog.Logger) {
	g, err := rdg.Make([]csr.Edge{0}, nil, rdg.Config{
		Paths:   []string{cfg.DataDir},
		Workers: cfg.Workers,
		NodeID:  cfg.NodeID,
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("rdgctl: init: %v", err)
	}
	defer g.Close()

	result, err := g.Store(model.NextVersion)
	if err != nil {
		log.Fatalf("rdgctl: init commit: %v", err)
	}
	fmt.Printf("initialized %s at version %d\n", cfg.DataDir, result.Manifest.Version)
}

// runInfo prints the newest manifest found in an existing graph
// directory by actually reopening it, rather than trusting any
// in-memory state (there is none — this process never committed it).
func runInfo(cfg cliConfig, logger *slog.Logger) {
	blobs, err := blobstore.Open(cfg.DataDir, logger)
	if err != nil {
		log.Fatalf("rdgctl: info: %v", err)
	}
	_, ok, err := persistence.Open(blobs, nil, cfg.NodeID, nil).LatestVersion("")
	_ = blobs.Close()
	if err != nil {
		log.Fatalf("rdgctl: info: %v", err)
	}
	if !ok {
		fmt.Println("no manifest found")
		return
	}

	g, err := rdg.Open(rdg.Config{
		Paths:   []string{cfg.DataDir},
		Workers: cfg.Workers,
		NodeID:  cfg.NodeID,
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("rdgctl: reopen: %v", err)
	}
	defer g.Close()

	m := g.Persist.CurrentManifest()
	fmt.Printf("version=%d viewtype=%q num_hosts=%d transposed=%v\n", m.Version, m.ViewType, m.NumHosts, m.Transposed)
	fmt.Printf("num_nodes=%d num_edges=%d node_columns=%d edge_columns=%d\n",
		g.Views.GetDefault().NumNodes(), g.Views.GetDefault().NumEdges(),
		len(g.Nodes.ListFull()), len(g.Edges.ListFull()))
}
