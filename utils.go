package main

import (
	"fmt"
	"sync/atomic"

	"github.com/global-nexus/newscache/assetcache"
	"github.com/global-nexus/newscache/config"
	"github.com/global-nexus/newscache/log"
)

var networkRules atomic.Value

func currentRules() *assetcache.Rules {
	return networkRules.Load().(*assetcache.Rules)
}

// reloadConfig reloads the config file and applies the parts that are safe
// to swap at runtime: debug logging, the network-only pattern set and the
// metrics access list. Cache mode and listen addresses need a restart.
func reloadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(*configFile)
	if err != nil {
		return nil, fmt.Errorf("cannot load config %q: %w", *configFile, err)
	}

	rules, err := assetcache.NewRules(cfg.Cache.NetworkOnly)
	if err != nil {
		return nil, err
	}

	log.SetDebug(cfg.LogDebug)
	networkRules.Store(rules)
	allowedNetworksMetrics.Store(&cfg.Server.Metrics.AllowedNetworks)

	log.Infof("Loading config %q: successful", *configFile)
	return cfg, nil
}
