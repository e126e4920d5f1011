package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/gjbm2/dagnet-sub000/pkg/api"
	"github.com/gjbm2/dagnet-sub000/pkg/funnel"
	"github.com/gjbm2/dagnet-sub000/pkg/store"
	redisstore "github.com/gjbm2/dagnet-sub000/pkg/store/redis"
)

func main() {
	fmt.Println(`{"level":"info","msg":"system_started","component":"dagnet-d"}`)

	config, err := LoadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Printf(`{"level":"fatal","msg":"invalid_config","error":"%v"}`+"\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	engineCfg := funnel.Config{}
	if config.ConfigPath != "" {
		loaded, err := funnel.LoadConfig(config.ConfigPath)
		if err != nil {
			fmt.Printf(`{"level":"fatal","msg":"failed_to_load_engine_config","path":"%s","error":"%v"}`+"\n", config.ConfigPath, err)
			os.Exit(1)
		}
		engineCfg = *loaded
		fmt.Printf(`{"level":"info","msg":"engine_config_loaded","path":"%s"}`+"\n", config.ConfigPath)
	}

	catalog, err := engineCfg.BuildCatalog()
	if err != nil {
		fmt.Printf(`{"level":"fatal","msg":"invalid_provider_catalog","error":"%v"}`+"\n", err)
		os.Exit(1)
	}

	st, err := store.NewStore(config.DBPath)
	if err != nil {
		fmt.Printf(`{"level":"fatal","msg":"failed_to_init_store","error":"%v"}`+"\n", err)
		os.Exit(1)
	}
	fmt.Printf(`{"level":"info","msg":"store_initialized","path":"%s"}`+"\n", config.DBPath)

	// Graphs served to the compiler come through the cache when Redis is
	// configured; the audit log always lives in SQLite.
	var graphs api.GraphStoreInterface = st
	if config.RedisAddr != "" {
		cache := redisstore.NewGraphCache(goredis.NewClient(&goredis.Options{Addr: config.RedisAddr}))
		graphs = redisstore.NewCachedStore(st, cache)
		fmt.Printf(`{"level":"info","msg":"graph_cache_enabled","addr":"%s"}`+"\n", config.RedisAddr)
	}

	engine := funnel.NewEngine(engineCfg, catalog, st, logger)

	server := api.NewServer(graphs, engine, config.Addr)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		fmt.Printf(`{"level":"info","msg":"shutdown_initiated","signal":"%s"}`+"\n", sig)
	case err := <-serverErr:
		fmt.Printf(`{"level":"fatal","msg":"server_failed","error":"%v"}`+"\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_stop_server","error":"%v"}`+"\n", err)
	}

	if err := st.Close(); err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_close_store","error":"%v"}`+"\n", err)
	} else {
		fmt.Println(`{"level":"info","msg":"store_closed"}`)
	}

	fmt.Println(`{"level":"info","msg":"shutdown_complete"}`)
}
