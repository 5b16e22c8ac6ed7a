package main

import (
	"time"

	"github.com/pkg/errors"

	"github.com/depforge/depforge/internal/config"
	"github.com/depforge/depforge/retriever"
	"github.com/depforge/depforge/source"
)

// cacheTTL is how long a cached version list stays fresh before
// openCaching's epoch cutoff makes it stale: long enough to cover
// repeated invocations in the same working session without going
// stale against upstream changes.
const cacheTTL = 24 * time.Hour

// openCaching wires the source Coordinator behind the two-tier
// retriever cache, shared by every subcommand that needs to consult
// dependency versions or requirements.
func openCaching(cctx *config.Ctx) (*retriever.Caching, *retriever.BoltStore, error) {
	coordinator := source.New(cctx.Config.CacheRoot, cctx.Config.RewriteSSH)
	store, err := retriever.OpenBoltStore(cctx.Config.CacheRoot, time.Now().Add(-cacheTTL).Unix(), nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening retriever cache")
	}
	caching := retriever.NewCaching(coordinator, store, func() int64 { return time.Now().Unix() })
	return caching, store, nil
}
