package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/OCAP2/skirmish/internal/config"
	"github.com/OCAP2/skirmish/internal/dispatcher"
	"github.com/OCAP2/skirmish/internal/model"
	"github.com/OCAP2/skirmish/internal/storage"
	gormstorage "github.com/OCAP2/skirmish/internal/storage/gorm"
	"github.com/OCAP2/skirmish/internal/storage/memory"
	pgstorage "github.com/OCAP2/skirmish/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/skirmish/internal/storage/sqlite"
	wsstorage "github.com/OCAP2/skirmish/internal/storage/websocket"
	"github.com/OCAP2/skirmish/internal/worker"
	"github.com/spf13/viper"
)

func createStorageBackend(storageCfg config.StorageConfig, d *dispatcher.Dispatcher) (storage.Backend, error) {
	gormDeps := gormstorage.Dependencies{
		LogManager: SlogManager,
	}
	if d != nil {
		gormDeps.BufferLengths = func() model.BufferLengths {
			return worker.BufferLengths(d.QueueLengths())
		}
	}

	switch storageCfg.Type {
	case "postgres":
		Logger.Info("Postgres storage backend initialized")
		return pgstorage.New(gormDeps, ZLogger.With().Str("component", "database").Logger()), nil

	case "sqlite":
		dumpPath := filepath.Join(
			storageCfg.Memory.OutputDir,
			fmt.Sprintf("%s_%s.db", AppName, SessionStartTime.Format("20060102_150405")),
		)
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     dumpPath,
		}, gormDeps)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		Logger.Info("SQLite storage backend initialized", "dumpPath", dumpPath)
		return backend, nil

	case "websocket":
		wsURL := httpToWS(viper.GetString("api.serverUrl")) + "/api"
		Logger.Info("WebSocket storage backend initialized", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:    wsURL,
			Secret: viper.GetString("api.apiKey"),
		}, Logger.With("component", "websocket")), nil

	case "memory", "":
		Logger.Info("Memory storage backend initialized")
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
