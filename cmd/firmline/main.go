package main

import (
	"hash/fnv"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/firmline/firmline/internal/config"
	"github.com/firmline/firmline/internal/contact"
	"github.com/firmline/firmline/internal/firm"
	"github.com/firmline/firmline/internal/intake"
	"github.com/firmline/firmline/internal/knowledge"
	"github.com/firmline/firmline/internal/migration"
	"github.com/firmline/firmline/internal/observability"
	"github.com/firmline/firmline/internal/providers/agent"
	"github.com/firmline/firmline/internal/ratelimit"
	"github.com/firmline/firmline/internal/seed"
	"github.com/firmline/firmline/internal/server"
	"github.com/firmline/firmline/pkg/db"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		config.Module,
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		migration.Module,
		ratelimit.Module,
		fx.Provide(agent.New),
		firm.Module,
		contact.Module,
		intake.Module,
		knowledge.Module,
		seed.Module,
		server.Module,
	).Run()
}

// newSnowflakeNode derives the worker id from the host name so
// replicas generate disjoint id ranges.
func newSnowflakeNode() (*snowflake.Node, error) {
	host, err := os.Hostname()
	if err != nil {
		host = "firmline"
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(host))
	return snowflake.NewNode(int64(h.Sum32() % 1024))
}
