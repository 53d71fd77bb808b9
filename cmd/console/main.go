package main

import (
	"github.com/CQUPT-CZL/LKG-GEN-sub001/internal/server"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/internal/util"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/logger"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.New(console.Params{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
