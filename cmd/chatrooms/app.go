package main

import (
	"fmt"
	"io"

	"github.com/comigor/chatrooms/internal/config"
	"github.com/comigor/chatrooms/internal/incident"
	"github.com/comigor/chatrooms/internal/llm"
	"github.com/comigor/chatrooms/internal/logger"
	"github.com/comigor/chatrooms/internal/persona"
	"github.com/comigor/chatrooms/internal/reply"
)

// app holds the process-wide collaborators, resolved once at startup.
type app struct {
	cfg       *config.Config
	rooms     *persona.Registry
	gateway   *llm.Gateway
	policy    *reply.Policy
	incidents *incident.Store
}

func newApp(logLevel string, logOut io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Init(cfg.Log.Format, logOut)
	if logLevel == "" {
		logLevel = cfg.Log.Level
	}
	logger.SetLevel(logLevel)

	rooms, err := persona.FromConfig(cfg.Rooms)
	if err != nil {
		return nil, err
	}

	gateway, err := llm.NewGateway(llm.NewClient(cfg.LLM), cfg.LLM)
	if err != nil {
		return nil, err
	}

	incidents := incident.NewStore(cfg.Incidents.DBPath)
	policy := reply.NewPolicy(reply.WithRecorder(incidents))

	logger.L.Info("configuration loaded",
		"provider", cfg.LLM.Provider,
		"base_url", cfg.LLM.BaseURL,
		"model", cfg.LLM.Model,
		"rooms", len(rooms.List()))

	return &app{
		cfg:       cfg,
		rooms:     rooms,
		gateway:   gateway,
		policy:    policy,
		incidents: incidents,
	}, nil
}

func (a *app) Close() error {
	return a.incidents.Close()
}
