package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/juristec/caseintel/internal/classifier"
	"github.com/juristec/caseintel/internal/mni"
	"github.com/juristec/caseintel/internal/parser"
	"github.com/juristec/caseintel/internal/resilience"
	"github.com/juristec/caseintel/internal/rules"
	"github.com/juristec/caseintel/internal/store"
)

// buildClient assembles the MNI client from configuration: transport,
// parser rule set, and the resilience policies sharing one breaker per
// endpoint.
func buildClient() (*mni.Client, *rules.Set, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	rs, err := rules.Load(cfg.Rules.Path)
	if err != nil {
		return nil, nil, err
	}

	transport := mni.NewTransport(mni.TransportConfig{
		Endpoint: cfg.MNI.Endpoint,
		Credentials: mni.Credentials{
			Consumer: cfg.MNI.Consumer,
			Password: cfg.MNI.Password,
		},
		ConnectTimeout: cfg.MNI.ConnectTimeout(),
		QueryTimeout:   cfg.MNI.QueryTimeout(),
		BatchTimeout:   cfg.MNI.BatchTimeout(),
		RequestsPerSec: cfg.MNI.RequestsPerSec,
	})

	breakers := resilience.NewServiceBreakers(resilience.FromCircuitConfig(
		cfg.Resilience.Circuit.FailureThreshold,
		cfg.Resilience.Circuit.CooldownSecs,
	))
	breaker := breakers.Get(cfg.MNI.Endpoint)
	query := resilience.NewPolicy(breaker, resilience.FromRetryConfig(
		cfg.Resilience.Query.MaxAttempts,
		cfg.Resilience.Query.InitialBackoffMs,
		cfg.Resilience.Query.MaxBackoffMs,
		cfg.Resilience.Query.Multiplier,
		cfg.Resilience.Query.JitterFraction,
	))
	batch := resilience.NewPolicy(breaker, resilience.FromRetryConfig(
		cfg.Resilience.Batch.MaxAttempts,
		cfg.Resilience.Batch.InitialBackoffMs,
		cfg.Resilience.Batch.MaxBackoffMs,
		cfg.Resilience.Batch.Multiplier,
		cfg.Resilience.Batch.JitterFraction,
	))

	client := mni.NewClient(transport, parser.New(rs), breakers,
		mni.WithChunkSize(cfg.MNI.ChunkSize),
		mni.WithMaxParallel(cfg.MNI.MaxParallel),
		mni.WithPolicies(query, batch),
	)
	return client, rs, nil
}

// openStore opens the configured audit/cache store, migrated and ready.
func openStore(ctx context.Context) (store.Store, error) {
	var poolCfg *store.PoolConfig
	if cfg.Store.MaxConns > 0 || cfg.Store.MinConns > 0 {
		poolCfg = &store.PoolConfig{MaxConns: cfg.Store.MaxConns, MinConns: cfg.Store.MinConns}
	}
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

func newClassifier(ctx context.Context) (classifier.Capability, error) {
	return classifier.New(ctx, classifier.Config{
		Backend:   cfg.Classifier.Backend,
		Model:     cfg.Classifier.Model,
		APIKey:    cfg.Classifier.APIKey,
		MaxTokens: cfg.Classifier.MaxTokens,
	})
}
