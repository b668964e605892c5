package main

import (
	"fmt"
	"log"

	"vm-rental/internal/api/controllers"
	"vm-rental/internal/api/routes"
	"vm-rental/internal/azure"
	"vm-rental/internal/config"
	"vm-rental/internal/db"
	"vm-rental/internal/logger"
	accountservice "vm-rental/internal/services/account_service"
	diskservice "vm-rental/internal/services/disk_service"
	planservice "vm-rental/internal/services/plan_service"
	queueservice "vm-rental/internal/services/queue_service"
	sweepservice "vm-rental/internal/services/sweep_service"
	vmservice "vm-rental/internal/services/vm_service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 1. Configuration
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// 2. Logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	zlog := logger.L()
	defer zlog.Sync()

	// 3. Database
	database, err := db.Open(cfg)
	if err != nil {
		zlog.Fatal("failed to open database", zap.Error(err))
	}

	// 4. Provisioning gateway
	gateway, err := azure.NewComputeGateway(cfg.AzureSubscriptionID, cfg.AzureResourceGroup, cfg.AzureLocation)
	if err != nil {
		zlog.Fatal("failed to build azure gateway", zap.Error(err))
	}

	// 5. Services
	vms := vmservice.New(database, gateway, zlog)
	queue := queueservice.New(database, zlog)
	plans := planservice.New(database, zlog)
	disks := diskservice.New(database, zlog)
	sweep := sweepservice.New(database, &sweepservice.LogNotifier{Log: zlog}, zlog)
	accounts := accountservice.New(database, zlog)

	// 6. Controllers and router
	r := routes.SetupRouter(routes.Controllers{
		Health: controllers.NewHealthController(database),
		Auth:   controllers.NewAuthController(accounts, cfg.JWTSecret),
		VM:     controllers.NewVirtualMachineController(vms),
		Queue:  controllers.NewQueueController(queue),
		Plan:   controllers.NewPlanController(plans),
		Sweep:  controllers.NewSweepController(sweep),
		Disk:   controllers.NewDiskController(disks),
	}, cfg.JWTSecret)

	// 7. Start server
	zlog.Info("starting server", zap.String("port", cfg.Port))
	if err := r.Run(fmt.Sprintf(":%s", cfg.Port)); err != nil {
		zlog.Fatal("server exited", zap.Error(err))
	}
}
