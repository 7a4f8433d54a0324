package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"raftnode/apply"
	"raftnode/config"
	"raftnode/raft"
	"raftnode/transport"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "raftd",
		Short: "Run a single node of a replicated log cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to cluster configuration YAML (required)")
	cmd.MarkFlagRequired("config") //nolint:errcheck // only fails for an unknown flag name

	return cmd
}

func run(configPath string) error {
	cluster, err := config.Load(configPath)
	if err != nil {
		return err
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("raftd: build logger: %w", err)
	}
	defer zapLogger.Sync() //nolint:errcheck // best-effort flush on exit

	registry := prometheus.NewRegistry()
	grpcTransport := transport.NewGRPCTransport(2 * time.Second)
	defer grpcTransport.Close() //nolint:errcheck // shutting down anyway

	node := raft.NewNode(raft.Config{
		SelfAddr:            cluster.Self,
		ClusterAddrs:        cluster.Addrs,
		Transport:           grpcTransport,
		Logger:              raft.NewLogger(cluster.Self, zapLogger),
		Registerer:          registry,
		FollowerTimeoutMin:  time.Duration(cluster.Timeouts.FollowerMin),
		FollowerTimeoutMax:  time.Duration(cluster.Timeouts.FollowerMax),
		CandidateTimeoutMin: time.Duration(cluster.Timeouts.CandidateMin),
		CandidateTimeoutMax: time.Duration(cluster.Timeouts.CandidateMax),
		HeartbeatInterval:   time.Duration(cluster.Timeouts.Heartbeat),
	})

	server := transport.NewServer(node, zapLogger)
	if err := server.Start(cluster.Self); err != nil {
		return fmt.Errorf("raftd: %w", err)
	}
	defer server.Stop()

	store := apply.NewKVStore()
	go apply.Run(node, store, zapLogger)

	node.Start()
	defer node.Stop()

	if cluster.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsServer := &http.Server{Addr: cluster.MetricsAddr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				zapLogger.Error("metrics server stopped", zap.Error(err))
			}
		}()
		defer metricsServer.Close()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		runREPL(node, store)
		close(done)
	}()

	select {
	case <-sig:
	case <-done:
	}
	return nil
}

// runREPL is an interactive console for submitting commands to the local
// node's log and inspecting the resulting state machine, generalizing a
// single-process PUT/GET/DELETE/STATS/QUIT loop into client commands
// routed through Raft consensus.
func runREPL(node *raft.Node, store *apply.KVStore) {
	fmt.Println("Enter commands: SET <key> <value>, GET <key>, DELETE <key>, STATUS, QUIT")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToUpper(parts[0])

		switch cmd {
		case "SET":
			if len(parts) < 3 {
				fmt.Println("Usage: SET <key> <value>")
				continue
			}
			submit(node, apply.Command{Op: apply.OpSet, Key: parts[1], Value: []byte(strings.Join(parts[2:], " "))})

		case "DELETE":
			if len(parts) != 2 {
				fmt.Println("Usage: DELETE <key>")
				continue
			}
			submit(node, apply.Command{Op: apply.OpDelete, Key: parts[1]})

		case "GET":
			if len(parts) != 2 {
				fmt.Println("Usage: GET <key>")
				continue
			}
			if v, ok := store.Get(parts[1]); ok {
				fmt.Printf("%s\n", v)
			} else {
				fmt.Println("(not found)")
			}

		case "STATUS":
			term, role, leader := node.GetState()
			fmt.Printf("term=%d role=%s leader=%q commitIndex=%d\n", term, role, leader, node.CommitIndex())

		case "QUIT", "EXIT":
			return

		default:
			fmt.Println("Unknown command. Available: SET, GET, DELETE, STATUS, QUIT")
		}
	}
}

func submit(node *raft.Node, cmd apply.Command) {
	payload, err := apply.EncodeCommand(cmd)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if err := node.SubmitCommand(payload); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("OK (appended; not yet guaranteed committed)")
}
