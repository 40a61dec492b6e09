package store

import (
	"github.com/tomasbasham/pageshot/internal/retention"
	"github.com/tomasbasham/pageshot/internal/scheduler"
	"github.com/tomasbasham/pageshot/internal/server"
)

var (
	_ scheduler.Store = (*Store)(nil)
	_ retention.Store = (*Store)(nil)
	_ server.Store    = (*Store)(nil)
	_ server.Pinger   = (*Store)(nil)
)
