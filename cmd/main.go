package main

import (
	"log"

	_ "gw-ipn-relay/docs"
	"gw-ipn-relay/internal/app"
)

// @title           IPN Relay API
// @version         1.0
// @description     Приём IPN-уведомлений о платежах, журнал поступлений и отчётный API для Telegram-бота
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app, err := app.NewApp()
	if err != nil {
		log.Fatalf("Ошибка создания приложения: %v", err)
	}

	if err := app.BuildCoreLayer(); err != nil {
		log.Fatalf("Ошибка сборки слоя core: %v", err)
	}
	if err := app.BuildBotLayer(); err != nil {
		log.Fatalf("Ошибка сборки слоя bot: %v", err)
	}
	if err := app.BuildIPNLayer(); err != nil {
		log.Fatalf("Ошибка сборки слоя ipn: %v", err)
	}
	if err := app.BuildReportLayer(); err != nil {
		log.Fatalf("Ошибка сборки слоя report: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("Ошибка при работе приложения: %v", err)
	}
}
