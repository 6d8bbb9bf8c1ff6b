package main

import (
	"github.com/alecthomas/kong"
	"github.com/secnex/admin-bootstrap/config"
	"github.com/secnex/admin-bootstrap/logger"
)

type Command struct {
	Serve ServeCommand `cmd:"" default:"1" help:"Migrate, seed and serve the admin API."`
	Seed  SeedCommand  `cmd:"" help:"Migrate and seed default data, then exit."`
	Ping  PingCommand  `cmd:"" help:"Check database connectivity."`
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	command := new(Command)
	ctx := kong.Parse(
		command,
		kong.Name("admin-bootstrap"),
		kong.Description("Admin backend bootstrap service"),
	)
	err := ctx.Run(&App{Config: cfg})
	ctx.FatalIfErrorf(err)
}
