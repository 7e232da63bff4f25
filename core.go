// Package core wires the chain engine, a storage backend and the API
// surface together according to a configuration.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/hashlink/core/api"
	"github.com/hashlink/core/chain"
	"github.com/hashlink/core/config"
	"github.com/hashlink/core/store/boltstore"
	"github.com/hashlink/core/store/diskstore"
	"github.com/hashlink/core/store/leveldbstore"
	"github.com/hashlink/core/store/memorystore"
)

// OpenStore returns the storage backend named by the configuration
func OpenStore(c config.Configuration) (chain.Store, error) {
	switch c.Storage.Backend {
	case "memory":
		return memorystore.New(), nil
	case "disk":
		return diskstore.New(c.Storage.Path)
	case "bolt":
		return boltstore.New(c.Storage.Path)
	case "leveldb":
		return leveldbstore.New(c.Storage.Path)
	}
	return nil, fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
}

// OpenChain loads the configured chain from its store, starting an
// empty one when nothing is persisted yet
func OpenChain(ctx context.Context, c config.Configuration) (*chain.Chain, error) {
	s, err := OpenStore(c)
	if err != nil {
		return nil, err
	}
	opts := []chain.Option{}
	if d := time.Duration(c.Chain.Autocommit); d > 0 {
		opts = append(opts, chain.WithAutocommit(d))
	}
	ch, err := chain.Load(ctx, c.Chain.Name, s, opts...)
	if errors.Is(err, chain.ErrChainNotFound) {
		log.WithField("chain", c.Chain.Name).Info("No stored chain, starting empty")
		return chain.New(c.Chain.Name, append(opts, chain.WithStore(s))...), nil
	}
	return ch, err
}

// RunAPI starts the API server over the configured chain
func RunAPI(c config.Configuration, ch *chain.Chain) error {
	return api.New(c, ch).Run()
}
